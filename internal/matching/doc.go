// Package matching provides path pattern matching for mock route resolution.
//
// Four pattern forms are supported:
//
//   - Literal paths: "/api/users" matches only itself.
//   - Named params: "/api/users/:id" matches a single path segment and
//     captures it under the parameter name.
//   - Wildcards: "*" matches any run of characters; "**" matches across
//     path segments (doublestar globbing).
//   - Regular expressions: patterns beginning with "^" are compiled with
//     Go's regexp package; named capture groups become params.
package matching
