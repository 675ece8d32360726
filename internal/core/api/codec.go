package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/solatis/datagrid/internal/grid"
	"github.com/solatis/datagrid/internal/types"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Message codec.
 *
 * The service speaks google.protobuf.Struct in both directions, so clients
 * send the same DataTables parameter object they would post to a web
 * endpoint:
 *
 *   Query       {"parameters": {"columns[0][data]": "customer", ...},
 *                "status": "paid", "refresh": true, "requestId": "<uuid>"}
 *   Invalidate  {"scope": "orders"} | {"prefix": "..."} | {"pattern": "..."}
 *   CreateOrder {"customer": "...", "status": "...", "total": 12.5,
 *                "placedAt": "2024-03-01T09:00:00Z", "tags": ["gift"]}
 *
 * Parameter values may be strings, numbers or booleans; numbers are written
 * without a trailing ".0" so "start": 10 reads as "10".
 */

type queryRequest struct {
	Parameters map[string]string
	Status     string
	Refresh    bool
	RequestID  types.RequestID
}

type invalidateRequest struct {
	Scope   string
	Prefix  string
	Pattern string
}

func decodeQuery(req *structpb.Struct) (queryRequest, error) {
	out := queryRequest{Parameters: map[string]string{}}
	fields := req.GetFields()

	if v, ok := fields["parameters"]; ok {
		params := v.GetStructValue()
		if params == nil {
			return out, fmt.Errorf("%w: parameters must be an object", ErrInvalidRequest)
		}
		for k, pv := range params.GetFields() {
			s, err := scalarText(pv)
			if err != nil {
				return out, fmt.Errorf("%w: parameter %s: %v", ErrInvalidRequest, k, err)
			}
			out.Parameters[k] = s
		}
	}

	var err error
	if out.Status, err = optionalString(fields, "status"); err != nil {
		return out, err
	}
	if out.Status != "" && !validStatus(out.Status) {
		return out, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, out.Status)
	}
	if v, ok := fields["refresh"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return out, fmt.Errorf("%w: refresh must be a boolean", ErrInvalidRequest)
		}
		out.Refresh = b.BoolValue
	}
	id, err := optionalString(fields, "requestId")
	if err != nil {
		return out, err
	}
	if id != "" {
		if out.RequestID, err = types.ParseRequestID(id); err != nil {
			return out, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return out, nil
}

func decodeInvalidate(req *structpb.Struct) (invalidateRequest, error) {
	var out invalidateRequest
	fields := req.GetFields()

	var err error
	if out.Scope, err = optionalString(fields, "scope"); err != nil {
		return out, err
	}
	if out.Prefix, err = optionalString(fields, "prefix"); err != nil {
		return out, err
	}
	if out.Pattern, err = optionalString(fields, "pattern"); err != nil {
		return out, err
	}

	set := 0
	for _, s := range []string{out.Scope, out.Prefix, out.Pattern} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return out, fmt.Errorf("%w: exactly one of scope, prefix or pattern is required", ErrInvalidRequest)
	}
	return out, nil
}

func decodeOrder(req *structpb.Struct) (*Order, error) {
	fields := req.GetFields()
	o := &Order{}

	var err error
	if o.Customer, err = optionalString(fields, "customer"); err != nil {
		return nil, err
	}
	if o.Status, err = optionalString(fields, "status"); err != nil {
		return nil, err
	}
	if v, ok := fields["total"]; ok {
		n, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum {
			return nil, fmt.Errorf("%w: total must be a number", ErrInvalidRequest)
		}
		o.Total = n.NumberValue
	}
	placed, err := optionalString(fields, "placedAt")
	if err != nil {
		return nil, err
	}
	if placed != "" {
		if o.PlacedAt, err = time.Parse(time.RFC3339, placed); err != nil {
			return nil, fmt.Errorf("%w: placedAt: %v", ErrInvalidRequest, err)
		}
	}
	if v, ok := fields["tags"]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("%w: tags must be a list", ErrInvalidRequest)
		}
		for _, tv := range list.GetValues() {
			label, isStr := tv.GetKind().(*structpb.Value_StringValue)
			if !isStr {
				return nil, fmt.Errorf("%w: tags must be strings", ErrInvalidRequest)
			}
			o.Tags = append(o.Tags, Tag{Label: label.StringValue})
		}
	}
	return o, nil
}

// encodeResult converts a result to its camelCase wire form.
func encodeResult[T any](r *grid.Result[T]) (*structpb.Struct, error) {
	data, err := r.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return out, nil
}

func optionalString(fields map[string]*structpb.Value, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	return s.StringValue, nil
}

func scalarText(v *structpb.Value) (string, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64), nil
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue), nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("must be a string, number or boolean")
	}
}
