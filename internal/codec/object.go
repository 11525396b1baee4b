package codec

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// objectRegistry maps Go types to CBOR tag numbers so OBJECT payloads can
// be decoded back into their original type without a target.
var objectRegistry = struct {
	sync.RWMutex
	tags cbor.TagSet
	enc  cbor.EncMode
	dec  cbor.DecMode
}{
	tags: cbor.NewTagSet(),
}

func init() {
	if err := rebuildObjectModes(); err != nil {
		panic(err)
	}
}

// RegisterType registers the type of sample under a CBOR tag number.
// Values of that type are written tagged and decode back into the same type;
// pointers register their element type. Numbers below 256 are reserved by
// the CBOR registry and are best avoided.
func RegisterType(num uint64, sample any) error {
	t := reflect.TypeOf(sample)
	if t == nil {
		return fmt.Errorf("cannot register nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	objectRegistry.Lock()
	defer objectRegistry.Unlock()

	opts := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
	if err := objectRegistry.tags.Add(opts, t, num); err != nil {
		return fmt.Errorf("failed to register %s as tag %d: %w", t, num, err)
	}
	return rebuildObjectModes()
}

// rebuildObjectModes must be called with the registry write lock held.
func rebuildObjectModes() error {
	enc, err := cbor.CanonicalEncOptions().EncModeWithTags(objectRegistry.tags)
	if err != nil {
		return fmt.Errorf("failed to build cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecModeWithTags(objectRegistry.tags)
	if err != nil {
		return fmt.Errorf("failed to build cbor decoder: %w", err)
	}
	objectRegistry.enc = enc
	objectRegistry.dec = dec
	return nil
}

func marshalObject(value any) ([]byte, error) {
	objectRegistry.RLock()
	enc := objectRegistry.enc
	objectRegistry.RUnlock()

	return enc.Marshal(value)
}

func unmarshalObject(data []byte, target any) error {
	objectRegistry.RLock()
	dec := objectRegistry.dec
	objectRegistry.RUnlock()

	if err := dec.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: object: %v", ErrCorrupted, err)
	}
	return nil
}
