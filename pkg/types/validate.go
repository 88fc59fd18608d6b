package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Constraint texts, one per violation class.
const (
	problemRequired = "Field required"
	problemPositive = "Input should be greater than 0"
)

// ValidateEnvelope checks an envelope for structural problems: empty
// routing fields, an unknown type, or a payload that breaks its kind's
// schema. It returns one string per problem found; an empty slice means
// the envelope is valid.
//
// Payload string fields are deliberately not checked for emptiness here.
// Empty items, recipes, and references are business-rule territory and
// draw their own, more specific reasons from the Governor, Banker, and
// World Engine.
func ValidateEnvelope(env Envelope) []string {
	var problems []string
	if strings.TrimSpace(env.From) == "" {
		problems = append(problems, "'from' field must not be empty")
	}
	if strings.TrimSpace(env.Topic) == "" {
		problems = append(problems, "'topic' field must not be empty")
	}
	if !KnownType(env.Type) {
		problems = append(problems, fmt.Sprintf("Unknown message type: %s", env.Type))
		return problems
	}
	payload, err := ParsePayload(env)
	if err != nil {
		problems = append(problems, parseProblem(err))
		return problems
	}
	return append(problems, payload.problems()...)
}

// parseProblem turns a payload decode error into the per-field problem
// form when the offending field is known.
func parseProblem(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fieldProblem(typeErr.Field, "Input should be a valid "+jsonKindName(typeErr.Type.Kind()))
	}
	return fmt.Sprintf("payload: %v", err)
}

func jsonKindName(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return k.String()
	}
}

func fieldProblem(field, msg string) string {
	return fmt.Sprintf("payload.%s: %s", field, msg)
}

func (o Offer) problems() []string {
	var ps []string
	if o.Quantity <= 0 {
		ps = append(ps, fieldProblem("quantity", problemPositive))
	}
	if o.PricePerUnit <= 0 {
		ps = append(ps, fieldProblem("price_per_unit", problemPositive))
	}
	return ps
}

func (b Bid) problems() []string {
	var ps []string
	if b.Quantity <= 0 {
		ps = append(ps, fieldProblem("quantity", problemPositive))
	}
	if b.MaxPricePerUnit <= 0 {
		ps = append(ps, fieldProblem("max_price_per_unit", problemPositive))
	}
	return ps
}

func (a Accept) problems() []string {
	if a.Quantity <= 0 {
		return []string{fieldProblem("quantity", problemPositive)}
	}
	return nil
}

func (c Counter) problems() []string {
	var ps []string
	if c.ProposedPrice <= 0 {
		ps = append(ps, fieldProblem("proposed_price", problemPositive))
	}
	if c.Quantity <= 0 {
		ps = append(ps, fieldProblem("quantity", problemPositive))
	}
	return ps
}

func (c CraftStart) problems() []string {
	var ps []string
	if c.Inputs == nil {
		ps = append(ps, fieldProblem("inputs", problemRequired))
	}
	if c.EstimatedTicks <= 0 {
		ps = append(ps, fieldProblem("estimated_ticks", problemPositive))
	}
	return ps
}

func (c CraftComplete) problems() []string {
	if c.Output == nil {
		return []string{fieldProblem("output", problemRequired)}
	}
	return nil
}

func (Join) problems() []string { return nil }

func (Heartbeat) problems() []string { return nil }

func (t Tick) problems() []string {
	if t.TickNumber <= 0 {
		return []string{fieldProblem("tick_number", problemPositive)}
	}
	return nil
}

func (s Spawn) problems() []string {
	if s.Items == nil {
		return []string{fieldProblem("items", problemRequired)}
	}
	return nil
}

func (g Gather) problems() []string {
	if g.Quantity <= 0 {
		return []string{fieldProblem("quantity", problemPositive)}
	}
	return nil
}

// Gather results carry no constraints: the granted quantity is
// legitimately zero on a reject and the reason may be empty.
func (GatherResult) problems() []string { return nil }

func (s Settlement) problems() []string {
	var ps []string
	if s.Quantity <= 0 {
		ps = append(ps, fieldProblem("quantity", problemPositive))
	}
	if s.TotalPrice <= 0 {
		ps = append(ps, fieldProblem("total_price", problemPositive))
	}
	return ps
}

func (ValidationResult) problems() []string { return nil }
