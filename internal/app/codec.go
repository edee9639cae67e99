package app

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/codec"
)

// sessionCodec resolves store.codec. "protobuf" encodes a Session as a
// google.protobuf.Struct message.
func sessionCodec(name string) (codec.Codec[sessioncache.Session], error) {
	if name != codec.NameProtobuf {
		return codec.ForName[sessioncache.Session](name)
	}
	return codec.Via[sessioncache.Session, *structpb.Struct]{
		Inner: codec.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} }),
		To:    sessionToStruct,
		From:  sessionFromStruct,
	}, nil
}

func sessionToStruct(s sessioncache.Session) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":        s.ID,
		"username":  s.Username,
		"expiresAt": float64(s.ExpiresAt), // unix ms is exact in a float64
	})
}

func sessionFromStruct(m *structpb.Struct) (sessioncache.Session, error) {
	f := m.GetFields()
	return sessioncache.Session{
		ID:        f["id"].GetStringValue(),
		Username:  f["username"].GetStringValue(),
		ExpiresAt: int64(f["expiresAt"].GetNumberValue()),
	}, nil
}
