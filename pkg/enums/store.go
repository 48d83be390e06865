package enums

// Store identifies a tenant bakery sharing the ingestion infrastructure.
type Store string

const (
	StoreBannos    Store = "bannos"
	StoreFlourlane Store = "flourlane"
)

var validStores = []Store{StoreBannos, StoreFlourlane}

func (s Store) IsValid() bool {
	for _, candidate := range validStores {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStore returns the store matching the given tag, if any.
func ParseStore(tag string) (Store, bool) {
	s := Store(tag)
	return s, s.IsValid()
}
