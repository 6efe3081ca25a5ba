package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"calendly-mcp/internal/canonical"
)

// toolResult renders a dispatch outcome as an MCP tool result. Errors are
// reported in-band with isError so the model can read and correct them.
func toolResult(result canonical.Result) map[string]any {
	var text string
	if result.Kind == canonical.KindSuccess {
		encoded, err := json.MarshalIndent(result.Body, "", "  ")
		if err != nil {
			text = "failed to encode result"
		} else {
			text = string(encoded)
		}
	} else {
		text = errorText(result)
	}
	return map[string]any{
		"content":           []map[string]any{{"type": "text", "text": text}},
		"structuredContent": result,
		"isError":           result.IsError(),
	}
}

func errorText(result canonical.Result) string {
	switch result.Kind {
	case canonical.KindValidationError:
		if result.Field != "" {
			return "invalid argument " + result.Field + ": " + result.Message
		}
		return "invalid call: " + result.Message
	case canonical.KindUpstreamError:
		return fmt.Sprintf("Calendly API error (%d): %s", result.Status, result.Message)
	default:
		return "Calendly API unreachable: " + result.Message
	}
}

// httpStatus maps a dispatch outcome to the REST adapter's status code.
func httpStatus(result canonical.Result) int {
	switch result.Kind {
	case canonical.KindSuccess:
		return http.StatusOK
	case canonical.KindValidationError:
		return http.StatusBadRequest
	case canonical.KindUpstreamError:
		if result.Status >= 400 && result.Status < 500 {
			return result.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
