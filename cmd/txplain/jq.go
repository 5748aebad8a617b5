package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// compileJQFlags compiles --jq and every --must-jq filter.
func compileJQFlags(c *cli.Context) (*gojq.Code, []*gojq.Code, error) {
	var filter *gojq.Code
	if expr := c.String("jq"); expr != "" {
		code, err := compileJQ(expr)
		if err != nil {
			return nil, nil, err
		}
		filter = code
	}

	requirements := make([]*gojq.Code, 0, len(c.StringSlice("must-jq")))
	for _, expr := range c.StringSlice("must-jq") {
		code, err := compileJQ(expr)
		if err != nil {
			return nil, nil, err
		}
		requirements = append(requirements, code)
	}
	return filter, requirements, nil
}

func compileJQ(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return code, nil
}

// toJQInput converts v into the plain maps and slices gojq operates on.
func toJQInput(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jq input: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jq input: %w", err)
	}
	return out, nil
}

// runJQ collects every value code emits for input.
func runJQ(code *gojq.Code, input any) ([]any, error) {
	var results []any
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter failed: %w", err)
		}
		results = append(results, v)
	}
}

// checkRequirements fails unless every code's first result is truthy.
func checkRequirements(codes []*gojq.Code, input any) error {
	for i, code := range codes {
		iter := code.Run(input)
		v, ok := iter.Next()
		if !ok {
			return fmt.Errorf("jq requirement %d produced no result", i+1)
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq requirement %d failed: %w", i+1, err)
		}
		if !isTruthy(v) {
			return fmt.Errorf("jq requirement %d not met", i+1)
		}
	}
	return nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// printJQValue prints strings raw and everything else as indented JSON.
func printJQValue(v any) error {
	if s, ok := v.(string); ok {
		fmt.Println(s)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
