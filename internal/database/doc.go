// Package database persists the tracked projects as a human-editable YAML
// mapping keyed by project name. Saving rotates the previous file to a .bak
// sibling before the new content is renamed into place.
package database
