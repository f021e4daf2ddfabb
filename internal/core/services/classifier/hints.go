package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// AnyLanguage matches a rule against every language.
const AnyLanguage = "*"

const (
	HintTimeout  = "execution exceeded the time budget"
	HintResource = "execution exceeded its memory/CPU budget"
	HintGeneric  = "inspect your code and the error output"
)

// Rule maps an error signature in stderr to a hint.
type Rule struct {
	Language string
	Pattern  *regexp.Regexp
	Hint     string
}

func rule(language, pattern, hint string) Rule {
	return Rule{Language: language, Pattern: regexp.MustCompile(pattern), Hint: hint}
}

// DefaultRules is the built-in hint table.
func DefaultRules() []Rule {
	return []Rule{
		rule("python", `\bSyntaxError\b`, "Check your syntax - there might be a syntax error in your code"),
		rule("python", `\bIndentationError\b|\bTabError\b`, "Check your indentation - Python is sensitive to whitespace"),
		rule("python", `\bNameError\b`, "Make sure all variables are defined before use"),
		rule("python", `\bModuleNotFoundError\b|\bImportError\b`, "Make sure you're using only standard library modules"),
		rule("python", `\bZeroDivisionError\b`, "A division by zero occurred - check your divisors"),
		rule("python", `\bRecursionError\b`, "Recursion went too deep - check your base case"),
		rule("python", `\bMemoryError\b`, "Your program ran out of memory - reduce the size of your data"),
		rule("javascript", `\bSyntaxError\b`, "Check your syntax - there might be a syntax error in your code"),
		rule("javascript", `\bReferenceError\b`, "Make sure all variables are declared before use"),
		rule("javascript", `Cannot find module`, "Only built-in Node.js modules are available"),
		rule("javascript", `heap out of memory`, "Your program ran out of memory - reduce the size of your data"),
		rule("shell", `(?i)syntax error`, "Check your syntax - there might be a syntax error in your script"),
		rule("shell", `not found`, "A command was not found - check its spelling"),
	}
}

type hintsFile struct {
	Hints []struct {
		Language string `yaml:"language"`
		Pattern  string `yaml:"pattern"`
		Hint     string `yaml:"hint"`
	} `yaml:"hints"`
}

// LoadRules reads additional rules from a YAML document of the form
//
//	hints:
//	  - language: ruby
//	    pattern: 'NoMethodError'
//	    hint: Check the method name
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hints file: %w", err)
	}
	var doc hintsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse hints file %s: %w", path, err)
	}
	rules := make([]Rule, 0, len(doc.Hints))
	for i, h := range doc.Hints {
		if h.Language == "" || h.Pattern == "" || h.Hint == "" {
			return nil, fmt.Errorf("hint #%d: language, pattern and hint are required", i)
		}
		re, err := regexp.Compile(h.Pattern)
		if err != nil {
			return nil, fmt.Errorf("hint #%d: %w", i, err)
		}
		rules = append(rules, Rule{Language: h.Language, Pattern: re, Hint: h.Hint})
	}
	return rules, nil
}
