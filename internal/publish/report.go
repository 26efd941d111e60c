package publish

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	reportEncodeErrorTemplateConstant = "encode publish report: %w"
	reportIndentConstant              = 2
)

// WriteReport renders result in the requested format. ReportFormatNone writes nothing.
func WriteReport(writer io.Writer, format ReportFormat, result Result) error {
	if writer == nil {
		return nil
	}

	switch format {
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(reportIndentConstant)
		if encodeError := encoder.Encode(result); encodeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
		}
		if closeError := encoder.Close(); closeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, closeError)
		}
		return nil
	case ReportFormatNone, "":
		return nil
	default:
		return fmt.Errorf(unsupportedReportFormatTemplate, format)
	}
}
