package nav

import "github.com/pkg/errors"

func errInvalidConfig(path, msg string) error {
	return errors.Errorf("nav config %q: %s", path, msg)
}
