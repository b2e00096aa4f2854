package envelope

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatHuman renders env as a short human-readable summary instead of the
// raw JSON envelope, for interactive terminal use independent of the NDJSON
// batch protocol.
func FormatHuman(w io.Writer, env Envelope) error {
	var sb strings.Builder

	if env.OK {
		sb.WriteString(fmt.Sprintf("[OK] %s — Success\n", env.Command))
	} else {
		sb.WriteString(fmt.Sprintf("[Error] %s — Failed\n", env.Command))
		if env.Error != nil {
			sb.WriteString(fmt.Sprintf("   Error (%s): %s\n", env.Error.Code, env.Error.Message))
		}
	}

	if fields, ok := env.Data.(map[string]any); ok {
		for k, v := range fields {
			sb.WriteString(fmt.Sprintf("   %s: %s\n", k, humanValue(v)))
		}
	} else if env.Data != nil {
		sb.WriteString(fmt.Sprintf("   data: %s\n", humanValue(env.Data)))
	}

	for _, a := range env.Artifacts {
		sb.WriteString(fmt.Sprintf("   artifact: %s (%s)\n", a.Path, a.Type))
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

// humanValue renders a data field for the human formatter, unwrapping raw
// JSON so wrapped-value payloads (page.eval, page.coords, ...) don't print
// as an opaque byte slice.
func humanValue(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	return fmt.Sprintf("%v", v)
}
