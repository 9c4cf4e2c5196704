// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/spf13/cast"
	"github.com/xmidt-org/tablog/model"
)

// EventVariable is the name events are bound to inside property expressions.
const EventVariable = "event"

var (
	ErrAttributeNotFound = errors.New("event attribute not found")
	ErrNullValue         = errors.New("expression evaluated to null")
	ErrInvalidExpression = errors.New("invalid property expression")

	errNoExtractor    = errors.New("property has no extractor")
	errExtractorPanic = errors.New("extractor panicked")
)

// PropertyConfig is the configured form of a Property. When Expression is
// set it is compiled as a CEL expression over the event, otherwise the event
// attribute named by Field (or Name when Field is empty) is rendered.
type PropertyConfig struct {
	Name       string `validate:"required"`
	Field      string
	Expression string
}

// NewProperties compiles the configured properties, keeping their order.
func NewProperties(configs []PropertyConfig) ([]Property, error) {
	properties := make([]Property, 0, len(configs))
	for _, c := range configs {
		var (
			extract Extractor
			err     error
		)
		switch {
		case c.Expression != "":
			extract, err = NewExpressionExtractor(c.Expression)
		case c.Field != "":
			extract = FieldExtractor(c.Field)
		default:
			extract = FieldExtractor(c.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", c.Name, err)
		}
		properties = append(properties, Property{Name: c.Name, Extract: extract})
	}
	return properties, nil
}

// FieldExtractor renders the named event attribute.
func FieldExtractor(name string) Extractor {
	return func(e model.Event) (string, error) {
		v, ok := e.Attribute(name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
		}
		return Render(v)
	}
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func celEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable(EventVariable, cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return env, envErr
}

// NewExpressionExtractor compiles expr, e.g. `event.level + ": " + event.message`
// or `event.properties.user`, into an Extractor.
func NewExpressionExtractor(expr string) (Extractor, error) {
	e, err := celEnv()
	if err != nil {
		return nil, err
	}
	ast, iss := e.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, iss.Err())
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return func(ev model.Event) (string, error) {
		out, _, err := prg.Eval(map[string]interface{}{EventVariable: ev.Map()})
		if err != nil {
			return "", err
		}
		if _, null := out.(types.Null); null {
			return "", ErrNullValue
		}
		return Render(out.Value())
	}, nil
}

// Render turns a value into its stored string form. Times are rendered as
// RFC 3339 in UTC.
func Render(v interface{}) (string, error) {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	return cast.ToStringE(v)
}
