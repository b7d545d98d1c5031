//go:build !windows

package engine

// NewInstallRegistry returns the platform installation registry. Outside
// Windows there is none, so legacy tags only resolve through configured engines.
func NewInstallRegistry() InstallRegistry {
	return NewStaticRegistry(nil, nil)
}
