package predictor

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Factory builds a Predictor for one registered model name
type Factory func(version string) (Predictor, error)

// Loader caches predictor instances keyed by "model:version"
type Loader struct {
	mu         sync.Mutex
	factories  map[string]Factory
	defaultFac Factory
	loaded     map[string]Predictor
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		factories: make(map[string]Factory),
		loaded:    make(map[string]Predictor),
	}
}

// Register associates a model name with a predictor factory
func (l *Loader) Register(modelName string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[modelName] = f
}

// SetDefault installs the factory used for models without an explicit
// registration
func (l *Loader) SetDefault(f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaultFac = f
}

// Load returns a predictor for the model version, building and
// caching it on first use
func (l *Loader) Load(modelName, version string) (Predictor, error) {
	key := modelName + ":" + version

	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.loaded[key]; ok {
		return p, nil
	}

	f, ok := l.factories[modelName]
	if !ok {
		f = l.defaultFac
	}
	if f == nil {
		return nil, fmt.Errorf("unknown model: %s", modelName)
	}

	p, err := f(version)
	if err != nil {
		return nil, err
	}

	l.loaded[key] = p
	logrus.Infof("Loaded model: %s", key)
	return p, nil
}

// Unload removes a cached predictor
func (l *Loader) Unload(modelName, version string) {
	key := modelName + ":" + version
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaded, key)
}

// Loaded lists the keys of all cached predictors
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.loaded))
	for k := range l.loaded {
		keys = append(keys, k)
	}
	return keys
}

// Clear drops all cached predictors
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = make(map[string]Predictor)
}
