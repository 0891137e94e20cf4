package packager

import "fmt"

// InvalidTemplatePathError indicates the input template file does not exist.
type InvalidTemplatePathError struct {
	Path string
}

func (e *InvalidTemplatePathError) Error() string {
	return fmt.Sprintf("template file %s does not exist", e.Path)
}

// InvalidTemplateURLError indicates a resource property references an
// artifact that is neither an S3 URL nor an existing local file.
type InvalidTemplateURLError struct {
	PropertyName string
	ResourceID   string
	Value        string
}

func (e *InvalidTemplateURLError) Error() string {
	return fmt.Sprintf("%s parameter of %s resource is invalid, it must be a S3 URL or a path to a template file, actual: %s",
		e.PropertyName, e.ResourceID, e.Value)
}

// ExportError indicates an artifact upload failed while exporting a specific
// resource property.
type ExportError struct {
	ResourceID   string
	PropertyName string
	Value        string
	Cause        error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("unable to upload artifact %s referenced by %s parameter of %s resource: %v",
		e.Value, e.PropertyName, e.ResourceID, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}
