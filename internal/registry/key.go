package registry

import (
	"fmt"
	"strings"

	"github.com/roach88/northwind/internal/schema"
)

// Namespace prefixes every registry key.
const Namespace = "northwind"

// Key returns the registry key of field on t.
func Key(t schema.EntityType, field string) string {
	return Namespace + "." + string(t) + "." + field
}

// ParseKey splits a registry key into entity type and field name.
func ParseKey(key string) (schema.EntityType, string, error) {
	ns, rest, ok := strings.Cut(key, ".")
	if !ok || ns != Namespace {
		return "", "", fmt.Errorf("key %q: want %s.<Entity>.<field>", key, Namespace)
	}
	entity, field, ok := strings.Cut(rest, ".")
	if !ok || entity == "" || field == "" || strings.Contains(field, ".") {
		return "", "", fmt.Errorf("key %q: want %s.<Entity>.<field>", key, Namespace)
	}
	return schema.EntityType(entity), field, nil
}
