package allergy

import "github.com/google/uuid"

// Key is the natural key an interned code is deduplicated on.
func (c Code) Key() CodeKey { return c.CodeKey }

// Key identifies an event across batches and runs.
func (e Event) Key() uuid.UUID { return e.UUID }
