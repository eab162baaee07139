package schemas

import "embed"

// SchemasFS содержит JSON-схемы событий, events/<event-name>/v<major>.json
//
//go:embed events
var SchemasFS embed.FS
