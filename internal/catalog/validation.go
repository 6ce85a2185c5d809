package catalog

import "strings"

func validateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrValidation
	}
	if p.Price < 0 {
		return ErrValidation
	}
	if p.MinimumStock < 0 {
		return ErrValidation
	}
	return nil
}

func validateCategory(c Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrValidation
	}
	return nil
}

func validateLocation(l Location) error {
	if strings.TrimSpace(l.Code) == "" || strings.TrimSpace(l.Name) == "" {
		return ErrValidation
	}
	return nil
}
