package net

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lcx/arena/wire"
)

type pingMsg struct {
	MsgBase
	Seq uint32
}

func (m *pingMsg) EncodePayload(enc *wire.Encoder) {
	enc.WriteUint32(m.Seq)
}

func (m *pingMsg) DecodePayload(dec *wire.Decoder) error {
	var err error
	m.Seq, err = dec.ReadUint32()
	return err
}

type chatMsg struct {
	MsgBase
	Text string
}

func (m *chatMsg) EncodePayload(enc *wire.Encoder) {
	enc.WriteString(m.Text)
}

func (m *chatMsg) DecodePayload(dec *wire.Decoder) error {
	var err error
	m.Text, err = dec.ReadString()
	return err
}

type emptyMsg struct {
	MsgBase
}

func (m *emptyMsg) EncodePayload(enc *wire.Encoder)       {}
func (m *emptyMsg) DecodePayload(dec *wire.Decoder) error { return nil }

func TestRegistryTagOrder(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&pingMsg{}, &chatMsg{}, &emptyMsg{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	wantTags := []struct {
		msg Message
		tag byte
	}{
		{&pingMsg{}, 0},
		{&chatMsg{}, 1},
		{&emptyMsg{}, 2},
	}
	for _, w := range wantTags {
		tag, ok := r.Tag(w.msg)
		if !ok || tag != w.tag {
			t.Errorf("Tag(%T) = %d, %v; want %d, true", w.msg, tag, ok, w.tag)
		}
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&pingMsg{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&pingMsg{}); err == nil {
		t.Fatal("duplicate registration: expected error")
	}
	// A failed registration must not burn a tag.
	if err := r.Register(&chatMsg{}); err != nil {
		t.Fatalf("Register after failure: %v", err)
	}
	tag, ok := r.Tag(&chatMsg{})
	if !ok || tag != 1 {
		t.Errorf("Tag(chatMsg) = %d, %v; want 1, true", tag, ok)
	}
}

func TestRegistryCapacity(t *testing.T) {
	r := NewRegistry()
	// Fill all tags directly; constructing 256 distinct Go types in a test is
	// not worth it.
	for i := 0; i < MaxMessageTypes; i++ {
		r.entries = append(r.entries, registryEntry{name: "filler", typ: reflect.TypeOf(emptyMsg{})})
	}
	if err := r.Register(&pingMsg{}); !errors.Is(err, ErrTooManyMessageTypes) {
		t.Fatalf("Register on full registry: %v, want ErrTooManyMessageTypes", err)
	}
}

func TestRegistryEncodeDecode(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&pingMsg{}, &chatMsg{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	data, err := r.Encode(&chatMsg{Text: "hello"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if data[0] != 1 {
		t.Errorf("tag byte = %d, want 1", data[0])
	}

	msg, err := r.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	chat, ok := msg.(*chatMsg)
	if !ok {
		t.Fatalf("Decode returned %T, want *chatMsg", msg)
	}
	if chat.Text != "hello" {
		t.Errorf("Text = %q, want %q", chat.Text, "hello")
	}
}

func TestRegistryEncodeUnregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Encode(&pingMsg{}); !errors.Is(err, ErrUnregisteredMessage) {
		t.Fatalf("Encode unregistered: %v, want ErrUnregisteredMessage", err)
	}
}

func TestRegistryDecodeErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&pingMsg{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("emptyFrame", func(t *testing.T) {
		if _, err := r.Decode(nil); err == nil {
			t.Error("expected error on empty frame")
		}
	})
	t.Run("unknownTag", func(t *testing.T) {
		if _, err := r.Decode([]byte{9, 0, 0, 0, 0}); !errors.Is(err, ErrUnknownMessageTag) {
			t.Errorf("Decode: %v, want ErrUnknownMessageTag", err)
		}
	})
	t.Run("trailingBytes", func(t *testing.T) {
		data, err := r.Encode(&pingMsg{Seq: 7})
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, 0xFF)
		if _, err := r.Decode(data); !errors.Is(err, wire.ErrTrailingBytes) {
			t.Errorf("Decode: %v, want wire.ErrTrailingBytes", err)
		}
	})
	t.Run("truncatedPayload", func(t *testing.T) {
		data, err := r.Encode(&pingMsg{Seq: 7})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := r.Decode(data[:2]); err == nil {
			t.Error("expected error on truncated payload")
		}
	})
}

func TestRegistryChecksum(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	if err := a.Register(&pingMsg{}, &chatMsg{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Register(&pingMsg{}, &chatMsg{}); err != nil {
		t.Fatal(err)
	}
	if a.Checksum() != b.Checksum() {
		t.Error("same registration order must produce the same checksum")
	}

	c := NewRegistry()
	if err := c.Register(&chatMsg{}, &pingMsg{}); err != nil {
		t.Fatal(err)
	}
	if a.Checksum() == c.Checksum() {
		t.Error("different registration order must change the checksum")
	}

	if NewRegistry().Checksum() == a.Checksum() {
		t.Error("empty registry checksum collided with a populated one")
	}
}
