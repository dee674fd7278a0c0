package handlers

import "fmt"

func errMissing(field string) error {
	return fmt.Errorf("%s is required", field)
}
