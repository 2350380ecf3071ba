package store

import (
	"fmt"
	"time"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

func errNotStored(entity, id string) error {
	return fmt.Errorf("store: %s %s not stored", entity, id)
}
