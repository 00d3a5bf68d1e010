package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstoreSpec = `
openapi: 3.0.0
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    get:
      responses:
        '200':
          description: A list of pets
          content:
            application/json:
              schema:
                type: array
                items:
                  type: object
                  properties:
                    id:
                      type: string
                      format: uuid
                    name:
                      type: string
    post:
      responses:
        '201':
          description: Created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: string
                    format: uuid
  /pets/{petId}:
    get:
      responses:
        '200':
          description: One pet
          content:
            application/json:
              schema:
                type: object
                properties:
                  name:
                    type: string
                    example: Rex
    delete:
      responses:
        '204':
          description: Deleted
`

func TestFromOpenAPI(t *testing.T) {
	doc, err := LoadSpecFromData([]byte(petstoreSpec))
	require.NoError(t, err)

	g := seededGenerator(1)
	endpoints, err := g.FromOpenAPI(doc)
	require.NoError(t, err)
	require.Len(t, endpoints, 4)

	byKey := make(map[string]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		byKey[ep.Method+" "+ep.Path] = ep
	}

	list, ok := byKey["GET /pets"]
	require.True(t, ok)
	assert.Equal(t, 200, list.Status)
	arr, ok := list.Body.([]any)
	require.True(t, ok)
	require.NotEmpty(t, arr)
	first, ok := arr[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, first, "id")
	assert.Contains(t, first, "name")

	create, ok := byKey["POST /pets"]
	require.True(t, ok)
	assert.Equal(t, 201, create.Status)

	one, ok := byKey["GET /pets/:petId"]
	require.True(t, ok, "path parameter not rewritten: %v", byKey)
	body, ok := one.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Rex", body["name"])

	del, ok := byKey["DELETE /pets/:petId"]
	require.True(t, ok)
	assert.Equal(t, 204, del.Status)
	assert.Nil(t, del.Body)
}

func TestFromOpenAPIStableOrder(t *testing.T) {
	doc, err := LoadSpecFromData([]byte(petstoreSpec))
	require.NoError(t, err)

	a, err := seededGenerator(4).FromOpenAPI(doc)
	require.NoError(t, err)
	b, err := seededGenerator(4).FromOpenAPI(doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFromOpenAPINoPaths(t *testing.T) {
	g := NewGenerator(nil)
	_, err := g.FromOpenAPI(nil)
	assert.Error(t, err)
}

func TestConvertPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/pets", "/pets"},
		{"/pets/{petId}", "/pets/:petId"},
		{"/users/{userId}/orders/{orderId}", "/users/:userId/orders/:orderId"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, convertPath(tt.in))
	}
}

func TestFromOpenAPISchemaConstraints(t *testing.T) {
	doc, err := LoadSpecFromData([]byte(`
openapi: 3.0.0
info:
  title: t
  version: 1.0.0
paths:
  /n:
    get:
      responses:
        '200':
          description: ok
          content:
            application/json:
              schema:
                type: object
                properties:
                  count:
                    type: integer
                    minimum: 5
                    maximum: 10
                  tags:
                    type: array
                    minItems: 2
                    maxItems: 2
                    items:
                      type: string
`))
	require.NoError(t, err)

	g := seededGenerator(6)
	endpoints, err := g.FromOpenAPI(doc)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)

	body := endpoints[0].Body.(map[string]any)
	count := body["count"].(int)
	assert.GreaterOrEqual(t, count, 5)
	assert.LessOrEqual(t, count, 10)
	assert.Len(t, body["tags"], 2)
}
