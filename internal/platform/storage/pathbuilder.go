package storage

import (
	"fmt"
	"path"
	"strings"
)

// AssetPurpose selects the object layout for an upload.
type AssetPurpose string

const (
	PurposeReturnImage  AssetPurpose = "return-image"
	PurposeProductImage AssetPurpose = "product-image"
)

// PathParams provide the identifiers used to compose object keys.
type PathParams struct {
	OrderID   string
	ProductID string
	UploadID  string
	FileName  string
}

// BuildObjectPath resolves the object key for purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	switch purpose {
	case PurposeReturnImage:
		orderID, err := validateSegment("orderID", params.OrderID)
		if err != nil {
			return "", err
		}
		uploadID, err := validateSegment("uploadID", params.UploadID)
		if err != nil {
			return "", err
		}
		fileName, err := validateFileName(params.FileName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("returns/%s/%s/%s", orderID, uploadID, fileName), nil
	case PurposeProductImage:
		productID, err := validateSegment("productID", params.ProductID)
		if err != nil {
			return "", err
		}
		fileName, err := validateFileName(params.FileName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("products/%s/%s", productID, fileName), nil
	default:
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") || strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	return value, nil
}

// validateFileName keeps only the base name of client-supplied file names and replaces spaces,
// since browsers may send full paths.
func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\\", "/"))
	value = path.Base(value)
	if value == "" || value == "." || value == "/" || value == ".." {
		return "", fmt.Errorf("storage: fileName is required")
	}
	return strings.ReplaceAll(value, " ", "_"), nil
}
