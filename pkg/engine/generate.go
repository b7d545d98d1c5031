package engine

//go:generate mockgen -destination=../mocks/mock_engine.go -package=mocks github.com/cryexport/cryexport/pkg/engine InstallRegistry,Strategy
