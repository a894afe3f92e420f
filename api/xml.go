package api

import (
	"encoding/xml"
	"strings"

	"github.com/derektruong/s3xfer/transport"
)

// xmlBody wraps an XML document string as a request body source.
func xmlBody(doc string) transport.BodySource {
	return transport.NewMemorySource([]byte(doc))
}

// writeTag emits <Name>escaped text</Name>, skipping empty values so the
// documents stay minimal. Tag names are CamelCase on purpose: several S3
// implementations reject lowercase variants.
func writeTag(b *strings.Builder, name, text string) {
	if text == "" {
		return
	}
	b.WriteString("<")
	b.WriteString(name)
	b.WriteString(">")
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">")
}
