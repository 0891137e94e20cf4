package packager

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactUploader is the artifact sink the exporter uploads through.
type ArtifactUploader interface {
	UploadWithDedup(ctx context.Context, filename, extension string) (string, error)
}

// Exporter walks a template document, uploads the local artifacts it
// references, and substitutes remote locators in place.
type Exporter interface {
	Export(ctx context.Context, doc map[string]any) (map[string]any, error)
}

// ExporterFunc adapts a function to the Exporter interface.
type ExporterFunc func(ctx context.Context, doc map[string]any) (map[string]any, error)

func (f ExporterFunc) Export(ctx context.Context, doc map[string]any) (map[string]any, error) {
	return f(ctx, doc)
}

// exportTarget names a string-valued resource property that may reference a
// local artifact.
type exportTarget struct {
	resourceType string
	property     string
	extension    string
}

var exportTargets = []exportTarget{
	{"AWS::CloudFormation::Stack", "TemplateURL", "template"},
	{"AWS::Serverless::Function", "CodeUri", ""},
	{"AWS::Serverless::Api", "DefinitionUri", ""},
}

// TemplateExporter is the default Exporter. It covers string-valued artifact
// properties; values that are already S3 or HTTP URLs pass through untouched.
type TemplateExporter struct {
	uploader ArtifactUploader
	baseDir  string
}

// NewTemplateExporter creates an exporter resolving relative artifact paths
// against baseDir.
func NewTemplateExporter(uploader ArtifactUploader, baseDir string) *TemplateExporter {
	return &TemplateExporter{
		uploader: uploader,
		baseDir:  baseDir,
	}
}

// Export implements the Exporter interface. The document is modified in
// place and returned.
func (e *TemplateExporter) Export(ctx context.Context, doc map[string]any) (map[string]any, error) {
	resources, ok := doc["Resources"].(map[string]any)
	if !ok {
		return doc, nil
	}

	// Stable order keeps upload progress deterministic.
	ids := make([]string, 0, len(resources))
	for id := range resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		resource, ok := resources[id].(map[string]any)
		if !ok {
			continue
		}
		resourceType, _ := resource["Type"].(string)
		properties, ok := resource["Properties"].(map[string]any)
		if !ok {
			continue
		}

		for _, target := range exportTargets {
			if target.resourceType != resourceType {
				continue
			}
			if err := e.exportProperty(ctx, id, properties, target); err != nil {
				return nil, err
			}
		}
	}

	return doc, nil
}

func (e *TemplateExporter) exportProperty(ctx context.Context, resourceID string, properties map[string]any, target exportTarget) error {
	value, ok := properties[target.property].(string)
	if !ok || isRemoteURL(value) {
		return nil
	}

	path := value
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.baseDir, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &InvalidTemplateURLError{
			PropertyName: target.property,
			ResourceID:   resourceID,
			Value:        value,
		}
	}

	url, err := e.uploader.UploadWithDedup(ctx, path, target.extension)
	if err != nil {
		return &ExportError{
			ResourceID:   resourceID,
			PropertyName: target.property,
			Value:        value,
			Cause:        err,
		}
	}

	properties[target.property] = url
	return nil
}

func isRemoteURL(value string) bool {
	return strings.HasPrefix(value, "s3://") ||
		strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://")
}
