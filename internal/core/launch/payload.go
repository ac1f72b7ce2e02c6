package launch

import (
	"encoding/json"
	"fmt"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
)

// PayloadKey is the well-known extras key the side payload travels under
const PayloadKey = "STANDIN_LOADER_PAYLOAD"

// Payload is the side payload a placeholder needs to rebuild the logical
// component after the platform starts it. It holds exactly the original class
// name and the activity descriptor.
type Payload struct {
	ClassName  string              `json:"class_name"`
	Descriptor descriptor.Activity `json:"descriptor"`
}

// Envelope is the result of redirecting a request: the rewritten request
// bound for a placeholder, plus the logical identity it stands in for.
type Envelope struct {
	Request *Request       `json:"request"`
	Logical component.Name `json:"logical"`
	Payload Payload        `json:"payload"`
}

// Physical returns the placeholder the rewritten request targets
func (e Envelope) Physical() component.Name {
	if e.Request == nil || e.Request.Target == nil {
		return component.Name{}
	}
	return *e.Request.Target
}

// PayloadOf extracts the side payload from a rewritten request. It accepts
// the typed value attached during redirection as well as the generic map a
// JSON round trip produces.
func PayloadOf(r *Request) (Payload, bool, error) {
	raw, ok := r.Extra(PayloadKey)
	if !ok {
		return Payload{}, false, nil
	}

	switch v := raw.(type) {
	case Payload:
		return v, true, nil
	case *Payload:
		if v == nil {
			return Payload{}, false, nil
		}
		return *v, true, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return Payload{}, true, fmt.Errorf("failed to encode side payload: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return Payload{}, true, fmt.Errorf("failed to decode side payload: %w", err)
		}
		return p, true, nil
	}
}
