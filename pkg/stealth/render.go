package stealth

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// Render wraps a template expression in an immediate invocation, passing each
// argument as its JSON literal in order: (<template>)(<arg1>,<arg2>,...).
func Render(template string, args ...any) (string, error) {
	literals := make([]string, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("%w: argument %d: %v", ErrSerialization, i, err)
		}
		literals[i] = string(b)
	}

	var sb strings.Builder
	sb.Grow(len(template) + 4)
	sb.WriteByte('(')
	sb.WriteString(template)
	sb.WriteString(")(")
	sb.WriteString(strings.Join(literals, ","))
	sb.WriteByte(')')
	return sb.String(), nil
}
