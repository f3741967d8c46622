package docs

import (
	"encoding/json"
	"testing"

	"github.com/go-openapi/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSpec_CoversAPIRoutes(t *testing.T) {
	doc := Spec()

	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, BasePath, doc.BasePath)

	routes := map[string][]string{
		"/chats":               {"get", "post"},
		"/chats/{id}":          {"get", "delete"},
		"/chats/{id}/messages": {"post"},
		"/tools":               {"get"},
		"/tools/{name}":        {"get"},
	}
	for path, methods := range routes {
		item, ok := doc.Paths.Paths[path]
		require.True(t, ok, path)
		for _, method := range methods {
			var op *spec.Operation
			switch method {
			case "get":
				op = item.Get
			case "post":
				op = item.Post
			case "delete":
				op = item.Delete
			}
			require.NotNil(t, op, "%s %s", method, path)
			assert.Contains(t, op.Responses.StatusCodeResponses, 401)
			assert.Equal(t, securityName, firstSecurity(op))
		}
	}

	for _, name := range []string{"Chat", "Message", "Tool", "Error", "SendMessageRequest"} {
		assert.Contains(t, doc.Definitions, name)
	}
}

func TestReadDoc_Registered(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, Title, decoded["info"].(map[string]any)["title"])
}

func firstSecurity(op *spec.Operation) string {
	for _, requirement := range op.Security {
		for name := range requirement {
			return name
		}
	}
	return ""
}
