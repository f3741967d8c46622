// Package docs serves the OpenAPI description of the /api routes.
//
//	@title			Research Agent API
//	@version		1.0
//	@description	Chats with a research agent that looks things up on Wikipedia, arXiv and DuckDuckGo.
//	@BasePath		/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package docs

import (
	"encoding/json"
	"sync"

	"github.com/go-openapi/spec"
	"github.com/swaggo/swag"
)

const (
	Title    = "Research Agent API"
	BasePath = "/api"

	securityName = "BearerAuth"
)

// Version is reported in the document info block.
var Version = "1.0"

type document struct {
	once sync.Once
	doc  string
}

// ReadDoc implements swag.Swagger.
func (d *document) ReadDoc() string {
	d.once.Do(func() {
		data, err := json.Marshal(Spec())
		if err != nil {
			d.doc = "{}"
			return
		}
		d.doc = string(data)
	})
	return d.doc
}

func init() {
	swag.Register(swag.Name, &document{})
}

// Spec builds the Swagger 2.0 document for the API.
func Spec() *spec.Swagger {
	info := &spec.Info{InfoProps: spec.InfoProps{
		Title:       Title,
		Version:     Version,
		Description: "Chats with a research agent that looks things up on Wikipedia, arXiv and DuckDuckGo. Authenticate with \"Authorization: Bearer <groq key>\".",
	}}

	return &spec.Swagger{SwaggerProps: spec.SwaggerProps{
		Swagger:     "2.0",
		Info:        info,
		BasePath:    BasePath,
		Consumes:    []string{"application/json"},
		Produces:    []string{"application/json"},
		Paths:       &spec.Paths{Paths: paths()},
		Definitions: definitions(),
		SecurityDefinitions: spec.SecurityDefinitions{
			securityName: spec.APIKeyAuth("Authorization", "header"),
		},
	}}
}

func paths() map[string]spec.PathItem {
	idParam := spec.PathParam("id").Typed("string", "").WithDescription("Chat ID")
	nameParam := spec.PathParam("name").Typed("string", "").WithDescription("Tool name")

	return map[string]spec.PathItem{
		"/chats": {PathItemProps: spec.PathItemProps{
			Get: operation("listChats", "List chats", "chats").
				RespondsWith(200, response("Chats of the caller, most recent first", spec.ArrayProperty(ref("Chat")))),
			Post: operation("createChat", "Create a chat", "chats").
				AddParam(spec.BodyParam("request", ref("CreateChatRequest"))).
				RespondsWith(201, response("Created chat", ref("Chat"))).
				RespondsWith(400, errorResponse("Invalid request body")),
		}},
		"/chats/{id}": {PathItemProps: spec.PathItemProps{
			Get: operation("getChat", "Get a chat by ID", "chats").
				AddParam(idParam).
				RespondsWith(200, response("Chat with its messages", ref("Chat"))).
				RespondsWith(404, errorResponse("Chat not found")),
			Delete: operation("deleteChat", "Delete a chat", "chats").
				AddParam(idParam).
				RespondsWith(204, spec.NewResponse().WithDescription("Chat deleted")).
				RespondsWith(404, errorResponse("Chat not found")),
		}},
		"/chats/{id}/messages": {PathItemProps: spec.PathItemProps{
			Post: operation("sendMessage", "Ask the agent", "chats").
				WithDescription("Runs the agent on the message and returns the assistant answer.").
				AddParam(idParam).
				AddParam(spec.BodyParam("request", ref("SendMessageRequest"))).
				RespondsWith(200, response("Assistant answer", ref("Message"))).
				RespondsWith(400, errorResponse("Empty message or a run already in progress")).
				RespondsWith(404, errorResponse("Chat not found")),
		}},
		"/tools": {PathItemProps: spec.PathItemProps{
			Get: operation("listTools", "List tools", "tools").
				RespondsWith(200, response("Tools available to the agent", spec.ArrayProperty(ref("Tool")))),
		}},
		"/tools/{name}": {PathItemProps: spec.PathItemProps{
			Get: operation("getTool", "Get a tool by name", "tools").
				AddParam(nameParam).
				RespondsWith(200, response("Tool", ref("Tool"))).
				RespondsWith(404, errorResponse("Tool not found")),
		}},
	}
}

func operation(id, summary, tag string) *spec.Operation {
	return spec.NewOperation(id).
		WithSummary(summary).
		WithTags(tag).
		WithProduces("application/json").
		SecuredWith(securityName).
		RespondsWith(401, errorResponse("Missing or invalid API key")).
		RespondsWith(500, errorResponse("Internal server error"))
}

func response(description string, schema *spec.Schema) *spec.Response {
	return spec.NewResponse().WithDescription(description).WithSchema(schema)
}

func errorResponse(description string) *spec.Response {
	return response(description, ref("Error"))
}

func ref(name string) *spec.Schema {
	return spec.RefSchema("#/definitions/" + name)
}

func object(required []string, properties map[string]*spec.Schema) spec.Schema {
	schema := new(spec.Schema).Typed("object", "")
	for name, property := range properties {
		schema.SetProperty(name, *property)
	}
	if len(required) > 0 {
		schema.WithRequired(required...)
	}
	return *schema
}

func definitions() spec.Definitions {
	return spec.Definitions{
		"Error": object([]string{"error"}, map[string]*spec.Schema{
			"error": spec.StringProperty(),
		}),
		"CreateChatRequest": object(nil, map[string]*spec.Schema{
			"name": spec.StringProperty(),
		}),
		"SendMessageRequest": object(nil, map[string]*spec.Schema{
			"content": spec.StringProperty().WithDescription("Message text"),
			"message": spec.StringProperty().WithDescription("Alias of content"),
		}),
		"ChatUsage": object(nil, map[string]*spec.Schema{
			"total_prompt_tokens":     spec.Int64Property(),
			"total_completion_tokens": spec.Int64Property(),
			"total_tokens":            spec.Int64Property(),
		}),
		"Usage": object(nil, map[string]*spec.Schema{
			"prompt_tokens":     spec.Int64Property(),
			"completion_tokens": spec.Int64Property(),
			"total_tokens":      spec.Int64Property(),
			"estimated":         spec.BoolProperty(),
		}),
		"ToolCallEvent": object(nil, map[string]*spec.Schema{
			"id":           spec.StringProperty(),
			"tool_call_id": spec.StringProperty(),
			"tool_name":    spec.StringProperty(),
			"arguments":    spec.StringProperty(),
			"result":       spec.StringProperty(),
			"error":        spec.StringProperty(),
			"duration":     spec.Int64Property().WithDescription("Nanoseconds"),
			"timestamp":    spec.DateTimeProperty(),
		}),
		"Message": object([]string{"id", "role", "content"}, map[string]*spec.Schema{
			"id":               spec.StringProperty(),
			"role":             spec.StringProperty().WithEnum("system", "user", "assistant", "tool"),
			"content":          spec.StringProperty().WithDescription("May contain <think> reasoning blocks"),
			"tool_call_events": spec.ArrayProperty(ref("ToolCallEvent")),
			"usage":            ref("Usage"),
			"error":            spec.StringProperty(),
			"timestamp":        spec.DateTimeProperty(),
		}),
		"Chat": object([]string{"id", "name"}, map[string]*spec.Schema{
			"id":         spec.StringProperty(),
			"session_id": spec.StringProperty(),
			"name":       spec.StringProperty(),
			"messages":   spec.ArrayProperty(ref("Message")),
			"usage":      ref("ChatUsage"),
			"created_at": spec.DateTimeProperty(),
			"updated_at": spec.DateTimeProperty(),
		}),
		"Tool": object([]string{"name"}, map[string]*spec.Schema{
			"name":          spec.StringProperty(),
			"description":   spec.StringProperty(),
			"parameters":    new(spec.Schema).Typed("object", "").WithDescription("JSON schema of the arguments"),
			"configuration": spec.MapProperty(spec.StringProperty()),
			"calls":         spec.Int64Property().WithDescription("Tool calls since startup"),
			"failures":      spec.Int64Property(),
		}),
	}
}
