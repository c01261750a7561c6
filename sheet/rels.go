package sheet

import (
	"encoding/xml"
	"strings"
)

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

// loadRelationships parses a .rels part and returns a map of relationship id
// to the zip-archive path of the worksheet part it targets. Relationships
// whose declared Type doesn't end in "/worksheet" are skipped; a
// relationship with no Type attribute at all is kept (some writers omit it).
func loadRelationships(z *zipContainer, path string) (map[string]string, error) {
	data, ok, err := z.bytes(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingContainerPartError{Part: path}
	}
	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, withPrefix("parsing "+path, err)
	}
	relationships := make(map[string]string, len(doc.Relationships))
	for _, rel := range doc.Relationships {
		if rel.Type != "" && !strings.HasSuffix(rel.Type, "/worksheet") {
			continue
		}
		relationships[rel.ID] = toZipPath(rel.Target)
	}
	return relationships, nil
}
