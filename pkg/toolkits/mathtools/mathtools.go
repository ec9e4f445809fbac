// Package mathtools provides arithmetic, statistics and trigonometry tools.
// Every tool answers with a decimal number rendered the way a float prints,
// so add_numbers(45, 23) yields "68.0".
package mathtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Tool names.
const (
	Add                = "add_numbers"
	Subtract           = "subtract_numbers"
	Multiply           = "multiply_numbers"
	Divide             = "divide_numbers"
	Power              = "power"
	SquareRoot         = "square_root"
	AbsoluteValue      = "absolute_value"
	Percentage         = "percentage"
	PercentageIncrease = "percentage_increase"
	Average            = "average"
	Factorial          = "factorial"
	Round              = "round_number"
	GCD                = "gcd"
	LCM                = "lcm"
	Logarithm          = "logarithm"
	Sine               = "sine"
	Cosine             = "cosine"
	Tangent            = "tangent"
)

// ErrDivisionByZero is returned by divide_numbers when b is zero.
var ErrDivisionByZero = errors.New("cannot divide by zero")

const maxFactorial = 170

// Tools returns a ToolBox with all math tools.
func Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(
		binary(Add, "Add two numbers together (a + b).", func(a, b float64) (float64, error) { return a + b, nil }),
		binary(Subtract, "Subtract b from a (a - b).", func(a, b float64) (float64, error) { return a - b, nil }),
		binary(Multiply, "Multiply two numbers together (a * b).", func(a, b float64) (float64, error) { return a * b, nil }),
		binary(Divide, "Divide a by b (a / b). Fails when b is zero.", divide),
		powerTool(),
		unary(SquareRoot, "Square root of a non-negative number.", squareRoot),
		unary(AbsoluteValue, "Absolute value of a number.", func(v float64) (float64, error) { return math.Abs(v), nil }),
		percentageTool(),
		percentageIncreaseTool(),
		averageTool(),
		factorialTool(),
		roundTool(),
		integerPair(GCD, "Greatest common divisor of two integers.", gcd),
		integerPair(LCM, "Least common multiple of two integers.", lcm),
		logarithmTool(),
		unary(Sine, "Sine of an angle given in degrees.", degrees(math.Sin)),
		unary(Cosine, "Cosine of an angle given in degrees.", degrees(math.Cos)),
		unary(Tangent, "Tangent of an angle given in degrees.", degrees(math.Tan)),
	)

	return tb
}

// Format renders v like a float: integral values keep a trailing ".0".
func Format(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// --- schemas ---

func numberSchema(required []string, props ...string) json.RawMessage {
	var b strings.Builder
	b.WriteString(`{"type":"object","properties":{`)
	for i := 0; i+1 < len(props); i += 2 {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `%q:{"type":"number","description":%q}`, props[i], props[i+1])
	}
	b.WriteString(`},"required":[`)
	for i, r := range required {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%q", r)
	}
	b.WriteString("]}")

	return json.RawMessage(b.String())
}

func result(v float64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// --- generic shapes ---

type pairInput struct {
	A *float64 `json:"a"`
	B *float64 `json:"b"`
}

func binary(name, desc string, fn func(a, b float64) (float64, error)) toolbox.Tool {
	return toolbox.Tool{
		Name:        name,
		Description: desc,
		InputSchema: numberSchema([]string{"a", "b"}, "a", "The first number", "b", "The second number"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in pairInput
			if err := toolbox.Decode(name, input, &in); err != nil {
				return "", err
			}
			if in.A == nil || in.B == nil {
				return "", fmt.Errorf("%s: a and b are required", name)
			}
			return result(fn(*in.A, *in.B))
		},
	}
}

type valueInput struct {
	Value *float64 `json:"value"`
}

func unary(name, desc string, fn func(v float64) (float64, error)) toolbox.Tool {
	return toolbox.Tool{
		Name:        name,
		Description: desc,
		InputSchema: numberSchema([]string{"value"}, "value", "The input number"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in valueInput
			if err := toolbox.Decode(name, input, &in); err != nil {
				return "", err
			}
			if in.Value == nil {
				return "", fmt.Errorf("%s: value is required", name)
			}
			return result(fn(*in.Value))
		},
	}
}

func integerPair(name, desc string, fn func(a, b int64) int64) toolbox.Tool {
	return toolbox.Tool{
		Name:        name,
		Description: desc,
		InputSchema: numberSchema([]string{"a", "b"}, "a", "The first integer", "b", "The second integer"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in pairInput
			if err := toolbox.Decode(name, input, &in); err != nil {
				return "", err
			}
			if in.A == nil || in.B == nil {
				return "", fmt.Errorf("%s: a and b are required", name)
			}
			a, err := toInt(name, *in.A)
			if err != nil {
				return "", err
			}
			b, err := toInt(name, *in.B)
			if err != nil {
				return "", err
			}
			return Format(float64(fn(a, b))), nil
		},
	}
}

// --- operations ---

func divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

func squareRoot(v float64) (float64, error) {
	if v < 0 {
		return 0, errors.New("cannot take the square root of a negative number")
	}
	return math.Sqrt(v), nil
}

func degrees(fn func(float64) float64) func(float64) (float64, error) {
	return func(v float64) (float64, error) {
		return fn(v * math.Pi / 180), nil
	}
}

func toInt(name string, v float64) (int64, error) {
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, fmt.Errorf("%s: %s is not an integer", name, Format(v))
	}
	return int64(v), nil
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	l := a / gcd(a, b) * b
	if l < 0 {
		l = -l
	}
	return l
}

// --- tools with their own inputs ---

func powerTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Power,
		Description: "Raise base to the given exponent.",
		InputSchema: numberSchema([]string{"base", "exponent"}, "base", "The base", "exponent", "The exponent"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Base     float64 `json:"base"`
				Exponent float64 `json:"exponent"`
			}
			if err := toolbox.Decode(Power, input, &in); err != nil {
				return "", err
			}
			v := math.Pow(in.Base, in.Exponent)
			if math.IsNaN(v) {
				return "", fmt.Errorf("%s: result is not a real number", Power)
			}
			return Format(v), nil
		},
	}
}

func percentageTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Percentage,
		Description: "Compute percent % of total, for example 15% of 200.",
		InputSchema: numberSchema([]string{"percent", "total"}, "percent", "The percentage", "total", "The total amount"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Percent float64 `json:"percent"`
				Total   float64 `json:"total"`
			}
			if err := toolbox.Decode(Percentage, input, &in); err != nil {
				return "", err
			}
			return Format(in.Percent * in.Total / 100), nil
		},
	}
}

func percentageIncreaseTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        PercentageIncrease,
		Description: "Percentage change from old_value to new_value. Negative results are decreases.",
		InputSchema: numberSchema([]string{"old_value", "new_value"}, "old_value", "The original value", "new_value", "The new value"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Old float64 `json:"old_value"`
				New float64 `json:"new_value"`
			}
			if err := toolbox.Decode(PercentageIncrease, input, &in); err != nil {
				return "", err
			}
			if in.Old == 0 {
				return "", errors.New("old value cannot be zero")
			}
			return Format((in.New - in.Old) / in.Old * 100), nil
		},
	}
}

func averageTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Average,
		Description: "Arithmetic mean of a list of numbers.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"numbers":{"type":"array","items":{"type":"number"},"description":"The numbers to average"}},"required":["numbers"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Numbers []float64 `json:"numbers"`
			}
			if err := toolbox.Decode(Average, input, &in); err != nil {
				return "", err
			}
			if len(in.Numbers) == 0 {
				return "", errors.New("cannot average an empty list")
			}
			var sum float64
			for _, n := range in.Numbers {
				sum += n
			}
			return Format(sum / float64(len(in.Numbers))), nil
		},
	}
}

func factorialTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Factorial,
		Description: "Factorial of a non-negative integer n (n <= 170).",
		InputSchema: numberSchema([]string{"n"}, "n", "A non-negative integer"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				N float64 `json:"n"`
			}
			if err := toolbox.Decode(Factorial, input, &in); err != nil {
				return "", err
			}
			n, err := toInt(Factorial, in.N)
			if err != nil {
				return "", err
			}
			if n < 0 || n > maxFactorial {
				return "", fmt.Errorf("factorial is defined here for integers between 0 and %d", maxFactorial)
			}
			v := 1.0
			for i := int64(2); i <= n; i++ {
				v *= float64(i)
			}
			return Format(v), nil
		},
	}
}

func roundTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Round,
		Description: "Round value to the given number of decimal places (default 0).",
		InputSchema: numberSchema([]string{"value"}, "value", "The number to round", "decimals", "Decimal places to keep"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Value    float64 `json:"value"`
				Decimals int     `json:"decimals"`
			}
			if err := toolbox.Decode(Round, input, &in); err != nil {
				return "", err
			}
			if in.Decimals < 0 || in.Decimals > 15 {
				return "", fmt.Errorf("%s: decimals must be between 0 and 15", Round)
			}
			p := math.Pow(10, float64(in.Decimals))
			return Format(math.Round(in.Value*p) / p), nil
		},
	}
}

func logarithmTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Logarithm,
		Description: "Logarithm of value in the given base. Without a base the natural logarithm is used.",
		InputSchema: numberSchema([]string{"value"}, "value", "A positive number", "base", "The logarithm base (default e)"),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Value float64  `json:"value"`
				Base  *float64 `json:"base"`
			}
			if err := toolbox.Decode(Logarithm, input, &in); err != nil {
				return "", err
			}
			if in.Value <= 0 {
				return "", errors.New("logarithm is only defined for positive values")
			}
			if in.Base == nil {
				return Format(math.Log(in.Value)), nil
			}
			if *in.Base <= 0 || *in.Base == 1 {
				return "", errors.New("logarithm base must be positive and not equal to 1")
			}
			switch *in.Base {
			case 10:
				return Format(math.Log10(in.Value)), nil
			case 2:
				return Format(math.Log2(in.Value)), nil
			}
			return Format(math.Log(in.Value) / math.Log(*in.Base)), nil
		},
	}
}
