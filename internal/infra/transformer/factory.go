package transformer

import (
	"fmt"

	"github.com/StreamCatalog/internal/domain"
)

// GetMapper returns the stream mapper registered under name.
func GetMapper(name string) (domain.StreamMapper, error) {
	switch name {
	case CatalogName:
		return NewCatalogMapper(), nil
	case TwitchName:
		return NewTwitchMapper(), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrMapperNotFound, name)
	}
}
