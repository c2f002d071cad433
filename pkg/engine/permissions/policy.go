package permissions

import (
	"encoding/json"

	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
)

// PolicyVersion is the IAM policy language version.
const PolicyVersion = "2012-10-17"

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid       string               `json:"Sid,omitempty"`
	Effect    string               `json:"Effect"`
	Action    []string             `json:"Action"`
	Resource  []string             `json:"Resource"`
	Condition conditions.Condition `json:"Condition,omitempty"`
}

// JSON renders the document the way IAM expects it.
func (d PolicyDocument) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
