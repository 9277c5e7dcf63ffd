package net

import (
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/lcx/arena/wire"
)

// MaxMessageTypes bounds the registry: the type tag is a single byte on the
// wire.
const MaxMessageTypes = 256

var (
	ErrTooManyMessageTypes = errors.New("message registry is full")
	ErrUnknownMessageTag   = errors.New("unknown message type tag")
	ErrUnregisteredMessage = errors.New("message type is not registered")
)

type registryEntry struct {
	name string
	typ  reflect.Type
}

// Registry maps message types to single-byte wire tags by registration
// order. Both peers must register the same types in the same order, or every
// frame decodes as the wrong type; the Checksum catches that at connect time
// instead of letting it corrupt silently.
//
// Register everything up front, before the transport starts. The lookup
// methods are read-only and safe for concurrent use after that.
type Registry struct {
	entries []registryEntry
	byType  map[reflect.Type]byte
}

// NewRegistry creates an empty message registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]byte),
	}
}

// Register assigns the next free tags to the given prototype messages, in
// argument order. Each prototype must be a non-nil pointer to a struct.
// On error, prototypes before the offending one keep their tags.
func (r *Registry) Register(protos ...Message) error {
	for _, p := range protos {
		if err := r.register(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(proto Message) error {
	if proto == nil {
		return errors.New("cannot register nil message")
	}
	typ := reflect.TypeOf(proto)
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("message prototype must be a pointer to struct, got %s", typ)
	}
	if _, dup := r.byType[typ]; dup {
		return fmt.Errorf("message type %s already registered", typ.Elem().Name())
	}
	if len(r.entries) >= MaxMessageTypes {
		return ErrTooManyMessageTypes
	}

	tag := byte(len(r.entries))
	r.entries = append(r.entries, registryEntry{
		name: typ.Elem().Name(),
		typ:  typ.Elem(),
	})
	r.byType[typ] = tag
	return nil
}

// Tag returns the wire tag for the message's type.
func (r *Registry) Tag(msg Message) (byte, bool) {
	tag, ok := r.byType[reflect.TypeOf(msg)]
	return tag, ok
}

// New returns a fresh zero-valued message for the given tag.
func (r *Registry) New(tag byte) (Message, error) {
	if int(tag) >= len(r.entries) {
		return nil, ErrUnknownMessageTag
	}
	return reflect.New(r.entries[tag].typ).Interface().(Message), nil
}

// Len reports how many message types are registered.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Checksum digests the registered type names in tag order. Two registries
// with the same checksum decode each other's frames; anything else differs
// in schema or ordering.
func (r *Registry) Checksum() uint32 {
	h := fnv.New32a()
	for _, e := range r.entries {
		_, _ = h.Write([]byte(e.name))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum32()
}

// Encode serializes a message to a frame body: one tag byte followed by the
// payload.
func (r *Registry) Encode(msg Message) ([]byte, error) {
	tag, ok := r.Tag(msg)
	if !ok {
		return nil, ErrUnregisteredMessage
	}
	enc := wire.NewEncoder()
	enc.WriteByte(tag)
	msg.EncodePayload(enc)
	return enc.Bytes(), nil
}

// Decode deserializes a frame body produced by Encode. The payload must be
// consumed exactly; trailing bytes mean the schemas disagree.
func (r *Registry) Decode(data []byte) (Message, error) {
	dec := wire.NewDecoder(data)
	tag, err := dec.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read tag: %w", err)
	}
	msg, err := r.New(tag)
	if err != nil {
		return nil, err
	}
	if err := msg.DecodePayload(dec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.entries[tag].name, err)
	}
	if !dec.EOF() {
		return nil, fmt.Errorf("decode %s: %w", r.entries[tag].name, wire.ErrTrailingBytes)
	}
	return msg, nil
}
