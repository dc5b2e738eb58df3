package annot

import (
	"encoding/json"
	"fmt"
)

// envelope wraps one object with its kind tag for serialization.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePage serializes a page's ordered object sequence. The result is the
// opaque snapshot format consumed by the history stack and the draft store.
func EncodePage(objs []Object) ([]byte, error) {
	envs := make([]envelope, 0, len(objs))
	for _, o := range objs {
		data, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("encode %s object %s: %w", o.ObjectKind(), o.ObjectID(), err)
		}
		envs = append(envs, envelope{Kind: o.ObjectKind(), Data: data})
	}
	return json.Marshal(envs)
}

// DecodePage reverses EncodePage.
func DecodePage(data []byte) ([]Object, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode page snapshot: %w", err)
	}
	objs := make([]Object, 0, len(envs))
	for _, env := range envs {
		o, err := decodeOne(env)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func decodeOne(env envelope) (Object, error) {
	var o Object
	switch env.Kind {
	case KindText:
		o = &Text{}
	case KindPath:
		o = &Path{}
	case KindRect:
		o = &Rect{}
	case KindEllipse:
		o = &Ellipse{}
	case KindLine:
		o = &Line{}
	case KindArrow:
		o = &Arrow{}
	case KindHighlight:
		o = &Highlight{}
	case KindWhiteout:
		o = &Whiteout{}
	case KindRedaction:
		o = &Redaction{}
	case KindStamp:
		o = &Stamp{}
	case KindSignature:
		o = &Signature{}
	case KindImage:
		o = &Image{}
	default:
		return nil, fmt.Errorf("unknown annotation kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, o); err != nil {
		return nil, fmt.Errorf("decode %s object: %w", env.Kind, err)
	}
	return o, nil
}

// ClonePage deep-copies an object sequence.
func ClonePage(objs []Object) []Object {
	if objs == nil {
		return nil
	}
	out := make([]Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}
