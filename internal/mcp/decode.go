package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/invoicename/internal/errors"
)

// decode maps tool arguments onto T. A missing argument object decodes to the
// zero T; arguments of the wrong shape are an INVALID_REQUEST naming the tool.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var input T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, errors.NewInvalidRequest(fmt.Sprintf("%s: arguments are not JSON", toolName(req)))
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, errors.NewInvalidRequest(fmt.Sprintf("%s: invalid arguments: %v", toolName(req), err))
	}
	return input, nil
}

func toolName(req mcp.CallToolRequest) string {
	if req.Params.Name == "" {
		return "tool"
	}
	return req.Params.Name
}
