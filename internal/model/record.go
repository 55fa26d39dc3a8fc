// Package model defines the core record data types.
package model

// Record represents a stored entry.
type Record struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Draft is an uncommitted name/email pair. It is a plain value: copying a
// Draft never aliases another one.
type Draft struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Collection is an ordered sequence of records in insertion order.
type Collection []Record

// DraftOf returns the editable fields of r.
func DraftOf(r Record) Draft {
	return Draft{Name: r.Name, Email: r.Email}
}

// Clone returns an independent copy of c. A nil collection clones to an
// empty, non-nil one so renderers always see a list.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Find returns the index of the record with id, or -1.
func (c Collection) Find(id string) int {
	for i, r := range c {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the record ids in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}
