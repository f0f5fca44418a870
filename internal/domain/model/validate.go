package model

import (
	"encoding/json"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

// Top-level and options allow-lists. Requests carrying keys outside these
// sets are rejected before any store mutation.
var (
	topLevelKeys = []string{"case_id", "casefile", "options", "patches"}
	optionKeys   = []string{
		"run_mode", "algorithm", "solution_format",
		"return_casefile", "solution_elements", "label",
	}
)

// ParseJobRequest validates a raw job submission body against the recognized
// key and value sets and returns the typed request. Validation is pure: it
// performs no I/O and reports the first violation encountered.
func ParseJobRequest(data []byte) (*JobRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "request body must be a JSON object")
	}

	if err := checkTopLevelKeys(raw); err != nil {
		return nil, err
	}

	req := &JobRequest{}
	if v, ok := raw["case_id"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &req.CaseID); err != nil {
			return nil, apperrors.ValidationField("case_id", "'case_id' must be a string: "+compact(v))
		}
	}
	if v, ok := raw["casefile"]; ok && !isNull(v) {
		req.Casefile = v
	}

	opts, err := parseOptions(raw["options"])
	if err != nil {
		return nil, err
	}
	req.Options = opts

	patches, err := parsePatches(raw["patches"])
	if err != nil {
		return nil, err
	}
	req.Patches = patches

	return req, nil
}

func checkTopLevelKeys(raw map[string]json.RawMessage) error {
	for k := range raw {
		if !contains(topLevelKeys, k) {
			return apperrors.ValidationField(k, "invalid key: '"+k+"'")
		}
	}

	_, hasCasefile := raw["casefile"]
	_, hasCaseID := raw["case_id"]
	if hasCasefile == hasCaseID {
		return apperrors.Validation("must specify either 'casefile' or 'case_id'")
	}

	if _, hasPatches := raw["patches"]; hasCasefile && hasPatches {
		return apperrors.Validation("cannot specify both 'casefile' and 'patches'")
	}
	return nil
}

func parseOptions(v json.RawMessage) (JobOptions, error) {
	var opts JobOptions
	if len(v) == 0 || isNull(v) {
		return opts, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(v, &raw); err != nil {
		return opts, apperrors.ValidationField("options", "'options' must be an object: "+compact(v))
	}

	for k := range raw {
		if !contains(optionKeys, k) {
			return opts, apperrors.ValidationField(k, "invalid options key: '"+k+"'")
		}
	}

	var err error
	if opts.RunMode, err = enumOption(raw, "run_mode", "target", "pricing"); err != nil {
		return opts, err
	}
	if opts.Algorithm, err = enumOption(raw, "algorithm", "default"); err != nil {
		return opts, err
	}
	if opts.SolutionFormat, err = enumOption(raw, "solution_format", "standard", "validation"); err != nil {
		return opts, err
	}

	if v, ok := raw["return_casefile"]; ok && !isNull(v) {
		var b bool
		if uerr := json.Unmarshal(v, &b); uerr != nil {
			return opts, apperrors.ValidationField("return_casefile",
				"invalid 'return_casefile' option: "+compact(v))
		}
		opts.ReturnCasefile = &b
	}

	if v, ok := raw["solution_elements"]; ok && !isNull(v) {
		if uerr := json.Unmarshal(v, &opts.SolutionElements); uerr != nil {
			return opts, apperrors.ValidationField("solution_elements",
				"'solution_elements' must be an array of strings: "+compact(v))
		}
	}

	if v, ok := raw["label"]; ok && !isNull(v) {
		if uerr := json.Unmarshal(v, &opts.Label); uerr != nil {
			return opts, apperrors.ValidationField("label", "'label' must be a string: "+compact(v))
		}
	}

	return opts, nil
}

// enumOption reads an optional string option and checks it against its
// allowed value set. Absent and null are both treated as unset.
func enumOption(raw map[string]json.RawMessage, key string, allowed ...string) (string, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", apperrors.ValidationField(key, "invalid '"+key+"': "+compact(v))
	}
	if !contains(allowed, s) {
		return "", apperrors.ValidationField(key, "invalid '"+key+"': "+s)
	}
	return s, nil
}

func parsePatches(v json.RawMessage) ([]Patch, error) {
	if len(v) == 0 || isNull(v) {
		return nil, nil
	}

	var patches []Patch
	if err := json.Unmarshal(v, &patches); err != nil {
		return nil, apperrors.ValidationField("patches", "'patches' must be an array: "+compact(v))
	}

	for _, p := range patches {
		if p.Path == "" {
			return nil, apperrors.ValidationField("patches", "patch 'path' is required")
		}
		if _, err := jmespath.Compile(p.Path); err != nil {
			return nil, apperrors.ValidationField("patches", "invalid patch path: '"+p.Path+"'")
		}
	}
	return patches, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func isNull(v json.RawMessage) bool {
	return string(v) == "null"
}

// compact renders a raw JSON value for inclusion in an error message.
func compact(v json.RawMessage) string {
	return strings.TrimSpace(string(v))
}
