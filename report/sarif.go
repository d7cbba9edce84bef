package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

const (
	toolName = "symbex"
	toolURI  = "https://github.com/dhamidi/symbex"
)

var ruleNames = map[string]string{
	"AvoidLoggingPasswords": "AvoidLoggingPasswordsRule",
	"S2259": "NullDereference",
	"S2583": "GratuitousCondition",
	"S2589": "GratuitousOperand",
	"S2689": "ObjectOutputStreamAppend",
}

type sarifWriter struct {
	version string
}

// NewSARIFWriter renders issues as a SARIF 2.1.0 log with a single run.
// Each issue's flow becomes a code flow.
func NewSARIFWriter(version string) Writer {
	return &sarifWriter{version: version}
}

func (s *sarifWriter) Write(w io.Writer, issues []Issue) error {
	data, err := json.MarshalIndent(s.log(issues), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal SARIF report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (s *sarifWriter) log(issues []Issue) *sarifLog {
	var ruleIDs []string
	for _, issue := range issues {
		if !slices.Contains(ruleIDs, issue.Rule) {
			ruleIDs = append(ruleIDs, issue.Rule)
		}
	}
	slices.Sort(ruleIDs)

	rules := make([]sarifRule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		rules = append(rules, sarifRule{ID: id, Name: ruleNames[id]})
	}

	results := make([]sarifResult, 0, len(issues))
	for _, issue := range issues {
		result := sarifResult{
			RuleID:    issue.Rule,
			RuleIndex: slices.Index(ruleIDs, issue.Rule),
			Level:     "warning",
			Message:   sarifMessage{Text: issue.Message},
			Locations: []sarifLocation{physical(Location{
				File:      issue.File,
				Line:      issue.Line,
				Column:    issue.Column,
				EndLine:   issue.EndLine,
				EndColumn: issue.EndColumn,
			})},
		}
		if len(issue.Flow) > 0 {
			var steps []sarifThreadFlowLocation
			for _, loc := range issue.Flow {
				steps = append(steps, sarifThreadFlowLocation{Location: physical(loc)})
			}
			result.CodeFlows = []sarifCodeFlow{{ThreadFlows: []sarifThreadFlow{{Locations: steps}}}}
		}
		results = append(results, result)
	}

	return &sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           toolName,
				Version:        s.version,
				InformationURI: toolURI,
				Rules:          rules,
			}},
			AutomationDetails: sarifAutomationDetails{GUID: uuid.NewString()},
			Results:           results,
		}},
	}
}

func physical(loc Location) sarifLocation {
	l := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: loc.File},
			Region: sarifRegion{
				StartLine:   loc.Line,
				StartColumn: loc.Column,
				EndLine:     loc.EndLine,
				EndColumn:   loc.EndColumn,
			},
		},
	}
	if loc.Message != "" {
		l.Message = &sarifMessage{Text: loc.Message}
	}
	return l
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool              `json:"tool"`
	AutomationDetails sarifAutomationDetails `json:"automationDetails"`
	Results           []sarifResult          `json:"results"`
}

type sarifAutomationDetails struct {
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	CodeFlows []sarifCodeFlow `json:"codeFlows,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

type sarifCodeFlow struct {
	ThreadFlows []sarifThreadFlow `json:"threadFlows"`
}

type sarifThreadFlow struct {
	Locations []sarifThreadFlowLocation `json:"locations"`
}

type sarifThreadFlowLocation struct {
	Location sarifLocation `json:"location"`
}
