package maven

import (
	"encoding/xml"
	"path"
	"strings"
)

// Pom holds the coordinates of a project object model. Missing group and
// version fall back to the parent's.
type Pom struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Name       string `xml:"name"`
	Parent     struct {
		GroupID string `xml:"groupId"`
		Version string `xml:"version"`
	} `xml:"parent"`
}

func ParsePom(data []byte) (*Pom, error) {
	var pom Pom
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, err
	}
	if pom.GroupID == "" {
		pom.GroupID = pom.Parent.GroupID
	}
	if pom.Version == "" {
		pom.Version = pom.Parent.Version
	}
	return &pom, nil
}

func (p *Pom) Project() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Coordinates is a Maven artifact location: group/artifact/version/file.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Version    string
	File       string
}

const metadataPrefix = "maven-metadata"

// ParsePath splits a repository location into Maven coordinates. Metadata
// files, which live above the version folder, report ok=false.
func ParsePath(location string) (Coordinates, bool) {
	location = strings.Trim(location, "/")
	segments := strings.Split(location, "/")
	if len(segments) < 4 {
		return Coordinates{}, false
	}
	file := segments[len(segments)-1]
	if strings.HasPrefix(file, metadataPrefix) {
		return Coordinates{}, false
	}
	return Coordinates{
		GroupID:    strings.Join(segments[:len(segments)-3], "."),
		ArtifactID: segments[len(segments)-3],
		Version:    segments[len(segments)-2],
		File:       file,
	}, true
}

// VersionFolder is the repository relative folder of the version.
func (c Coordinates) VersionFolder() string {
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version)
}
