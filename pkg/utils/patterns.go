package utils

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher handles glob pattern matching where * stops at separators
type PatternMatcher struct {
	patterns []string
	regexps  []*regexp.Regexp
}

// NewPatternMatcher creates a new pattern matcher
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	// Expand patterns to include variations
	var expandedPatterns []string
	for _, pattern := range patterns {
		expandedPatterns = append(expandedPatterns, ExpandPattern(pattern)...)
	}

	pm := &PatternMatcher{
		patterns: expandedPatterns,
		regexps:  make([]*regexp.Regexp, 0, len(expandedPatterns)),
	}

	for _, pattern := range expandedPatterns {
		regex, err := globToRegex(pattern, globOptions{})
		if err != nil {
			return nil, err
		}
		pm.regexps = append(pm.regexps, regex)
	}

	return pm, nil
}

// Match checks if a path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)

	for _, regex := range pm.regexps {
		if regex.MatchString(path) {
			return true
		}
	}

	return false
}

type globOptions struct {
	// starCrossesSeparator gives * the fnmatch meaning of "anything, including /"
	starCrossesSeparator bool
	foldCase             bool
}

// globToRegex converts a glob pattern to an anchored regular expression
func globToRegex(pattern string, opts globOptions) (*regexp.Regexp, error) {
	pattern = filepath.ToSlash(pattern)

	star := "[^/]*"
	single := "[^/]"
	if opts.starCrossesSeparator {
		star = ".*"
		single = "."
	}

	var regex strings.Builder
	if opts.foldCase {
		regex.WriteString("(?i)")
	}
	regex.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch pattern[i] {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** matches any number of directories
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					regex.WriteString("(?:.*/)?")
					i += 3
				} else {
					regex.WriteString(".*")
					i += 2
				}
			} else {
				regex.WriteString(star)
				i++
			}
		case '?':
			regex.WriteString(single)
			i++
		case '[':
			if !strings.ContainsRune(pattern[i+1:], ']') {
				// Unclosed bracket, treat as literal
				regex.WriteString("\\[")
				i++
				continue
			}

			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				regex.WriteString("[^")
				j++
			} else {
				regex.WriteString("[")
			}

			for j < len(pattern) && pattern[j] != ']' {
				if pattern[j] == '\\' && j+1 < len(pattern) {
					regex.WriteByte(pattern[j])
					regex.WriteByte(pattern[j+1])
					j += 2
				} else {
					regex.WriteByte(pattern[j])
					j++
				}
			}

			regex.WriteByte(']')
			i = j + 1
		case '\\':
			if i+1 < len(pattern) {
				regex.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				regex.WriteString("\\\\")
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			regex.WriteByte('\\')
			regex.WriteByte(pattern[i])
			i++
		default:
			regex.WriteByte(pattern[i])
			i++
		}
	}

	regex.WriteString("$")

	return regexp.Compile(regex.String())
}

// ExpandPattern expands a pattern to include common variations
func ExpandPattern(pattern string) []string {
	patterns := []string{pattern}

	// A bare directory name also covers its contents
	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, ".") {
		patterns = append(patterns, pattern+"/**/*")
	} else if !strings.HasPrefix(pattern, "**") && !strings.HasPrefix(pattern, "/") {
		patterns = append(patterns, "**/"+pattern)
	}

	return patterns
}

// ExclusionMatcher handles exclusion patterns for directory walks
type ExclusionMatcher struct {
	patterns []string
	matcher  *PatternMatcher
}

// NewExclusionMatcher creates a new exclusion matcher
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	allPatterns := append([]string{}, patterns...)

	// Convert directory names to patterns
	for i, pattern := range allPatterns {
		if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
			allPatterns[i] = "**/" + pattern + "/**"
		}
	}

	matcher, err := NewPatternMatcher(allPatterns)
	if err != nil {
		return nil, err
	}

	return &ExclusionMatcher{
		patterns: patterns,
		matcher:  matcher,
	}, nil
}

// IsExcluded checks if a path should be excluded
func (em *ExclusionMatcher) IsExcluded(path string) bool {
	return em.matcher.Match(path)
}

// GetDefaultExclusions returns paths inside a project that never influence an export
func GetDefaultExclusions() []string {
	return []string{
		".git",
		".svn",
		".vs",
		".vscode",
		".idea",
		"Solutions",
		"Cache",
		"*.swp",
		"*~",
		".DS_Store",
		"Thumbs.db",
		"*.log",
		"*.tmp",
	}
}

// Filter decides whether a relative path is left out of a copy
type Filter interface {
	IsExcluded(relPath string) bool
}

// PathFilter excludes relative paths matching any of a set of fnmatch-style
// patterns anchored at a base directory. * and ** both cross separators and
// matching ignores case, mirroring how the engine layout is addressed on Windows.
type PathFilter struct {
	regexps []*regexp.Regexp
}

// NewPathFilter compiles patterns relative to base
func NewPathFilter(base string, patterns []string) (*PathFilter, error) {
	base = filepath.ToSlash(base)
	pf := &PathFilter{
		regexps: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, pattern := range patterns {
		anchored := path.Join(base, NormalizePattern(pattern))
		regex, err := globToRegex(anchored, globOptions{starCrossesSeparator: true, foldCase: true})
		if err != nil {
			return nil, err
		}
		pf.regexps = append(pf.regexps, regex)
	}

	return pf, nil
}

// MustPathFilter is NewPathFilter for fixed pattern tables
func MustPathFilter(base string, patterns []string) *PathFilter {
	pf, err := NewPathFilter(base, patterns)
	if err != nil {
		panic(err)
	}
	return pf
}

// IsExcluded reports whether relPath matches at least one pattern
func (pf *PathFilter) IsExcluded(relPath string) bool {
	relPath = path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	for _, regex := range pf.regexps {
		if regex.MatchString(relPath) {
			return true
		}
	}
	return false
}

// EngineBinaryDir is where the engine keeps its 64-bit Windows runtime
const EngineBinaryDir = "bin/win_x64"

// EngineBinaryExcludes lists editor, GUI toolkit, crash reporting and scripting
// toolchain files that live next to the runtime binaries but must not ship.
func EngineBinaryExcludes() []string {
	return []string{
		"imageformats**",
		"ToolkitPro*",
		"platforms**",
		"Qt*",
		"mfc*",
		"CryGame*",
		"CryEngine.*.dll*",
		"Sandbox*",
		"ShaderCacheGen*",
		"smpeg2*",
		"icu*",
		"python27*",
		"LuaCompiler*",
		"Editor**",
		"PySide2*",
		"shiboken*",
		"crashrpt*",
		"CrashSender*",
	}
}

// NewEngineBinaryFilter returns the filter applied to the engine's binary directory
func NewEngineBinaryFilter() *PathFilter {
	return MustPathFilter(EngineBinaryDir, EngineBinaryExcludes())
}

// NormalizePattern normalizes a file pattern
func NormalizePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	pattern = strings.TrimPrefix(pattern, "./")
	pattern = strings.TrimSuffix(pattern, "/")
	return pattern
}

// MatchGlob matches a single file name against a shell pattern, ignoring case
func MatchGlob(pattern, name string) (bool, error) {
	return filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
}

// HasPathSegment reports whether p contains segment as a whole path element,
// ignoring case
func HasPathSegment(p, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.EqualFold(part, segment) {
			return true
		}
	}
	return false
}
