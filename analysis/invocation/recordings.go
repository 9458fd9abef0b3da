package invocation

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/benbjohnson/immutable"
	"github.com/fxamacker/cbor/v2"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/utils"
)

func FieldKey(ref cf.FieldRef) string {
	return "field " + ref.Key()
}

func ParameterKey(p Parameter) string {
	return "param " + p.Method.Key() + "#" + strconv.Itoa(p.Index)
}

func ReturnKey(ref cf.MethodRef) string {
	return "return " + ref.Key()
}

// Recordings collects the values observed by storing evaluations. Repeated
// observations of the same field, parameter or return value generalize.
// Recordings may be shared by evaluations running in parallel.
type Recordings struct {
	mu     sync.RWMutex
	values *immutable.Map[string, value.Value]
}

func NewRecordings() *Recordings {
	return &Recordings{values: immutable.NewMap[string, value.Value](nil)}
}

// Record generalizes v into the recording for key. Identities and traces
// are dropped first, since they are local to one evaluation.
func (r *Recordings) Record(key string, v value.Value) {
	if v == nil {
		return
	}
	v = value.Portable(v)

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.values.Get(key); ok {
		v = old.Generalize(v)
		if v.Equal(old) {
			return
		}
	}
	r.values = r.values.Set(key, v)
}

// Lookup returns the recording for key. Keys whose observations conflicted
// in type are not found.
func (r *Recordings) Lookup(key string) (value.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values.Get(key)
	if !ok || v.ComputationalType() == value.TypeTop {
		return nil, false
	}
	return v, true
}

func (r *Recordings) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values.Len()
}

// Keys returns the recorded keys in ascending order.
func (r *Recordings) Keys() []string {
	r.mu.RLock()
	values := r.values
	r.mu.RUnlock()

	keys := make([]string, 0, values.Len())
	for it := values.Iterator(); !it.Done(); {
		k, _, _ := it.Next()
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Recordings) String() string {
	str := ""
	for _, k := range r.Keys() {
		v, _ := r.get(k)
		str += k + ": " + v.String() + "\n"
	}
	return str
}

func (r *Recordings) get(key string) (value.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values.Get(key)
}

// Marshal encodes the recordings with canonical CBOR.
func (r *Recordings) Marshal() ([]byte, error) {
	r.mu.RLock()
	values := r.values
	r.mu.RUnlock()

	enc := make(map[string]value.Encoded, values.Len())
	for it := values.Iterator(); !it.Done(); {
		k, v, _ := it.Next()
		enc[k] = value.Encode(v)
	}
	return utils.CanonicalCBOR.Marshal(enc)
}

// UnmarshalRecordings decodes recordings. Reference values are attached
// to the class hierarchy h.
func UnmarshalRecordings(data []byte, h value.Hierarchy) (*Recordings, error) {
	var enc map[string]value.Encoded
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("invocation: unmarshal recordings: %w", err)
	}

	b := immutable.NewMapBuilder[string, value.Value](nil)
	for k, e := range enc {
		v, err := e.Decode(h)
		if err != nil {
			return nil, fmt.Errorf("invocation: recording %q: %w", k, err)
		}
		b.Set(k, v)
	}
	return &Recordings{values: b.Map()}, nil
}

// Save writes the encoded recordings to w.
func (r *Recordings) Save(w io.Writer) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadRecordings reads recordings from a file written by Save.
func ReadRecordings(path string, h value.Hierarchy) (*Recordings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalRecordings(data, h)
}
