package codec

import "google.golang.org/protobuf/proto"

// Protobuf stores proto messages. newMsg must return a fresh, empty message.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	err := proto.Unmarshal(b, m)
	return m, err
}

// Via stores V in the wire form of W. It lets plain structs ride on a message codec
// such as Protobuf without generated types of their own.
type Via[V, W any] struct {
	Inner Codec[W]
	To    func(V) (W, error)
	From  func(W) (V, error)
}

func (c Via[V, W]) Encode(v V) ([]byte, error) {
	w, err := c.To(v)
	if err != nil {
		return nil, err
	}
	return c.Inner.Encode(w)
}

func (c Via[V, W]) Decode(b []byte) (V, error) {
	w, err := c.Inner.Decode(b)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.From(w)
}
