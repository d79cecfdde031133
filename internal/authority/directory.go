package authority

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

const DefaultCountry = "DEFAULT"

// FallbackName is used when an agency id no longer matches anything listed.
const FallbackName = "Authority"

type Type string

const (
	TypePolice    Type = "police"
	TypeFinancial Type = "financial"
	TypeAbuse     Type = "abuse"
	TypeOther     Type = "other"
)

type Authority struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Type        Type   `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
}

//go:embed authorities.yaml
var defaultAuthorities []byte

type Directory struct {
	mu        sync.RWMutex
	byCountry map[string][]Authority
	watcher   *fsnotify.Watcher
}

func Parse(data []byte) (map[string][]Authority, error) {
	byCountry := map[string][]Authority{}
	if err := yaml.Unmarshal(data, &byCountry); err != nil {
		return nil, fmt.Errorf("parsing authorities: %w", err)
	}
	if len(byCountry[DefaultCountry]) == 0 {
		return nil, fmt.Errorf("authorities: missing %s list", DefaultCountry)
	}
	return byCountry, nil
}

// New loads the built-in directory, or the file at path when one is given.
func New(path string) (*Directory, error) {
	data := defaultAuthorities
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading authorities file: %w", err)
		}
	}
	byCountry, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &Directory{byCountry: byCountry}, nil
}

func (d *Directory) ForCountry(code string) []Authority {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list, ok := d.byCountry[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || code == "" {
		list = d.byCountry[DefaultCountry]
	}
	return append([]Authority{}, list...)
}

func (d *Directory) Find(country, id string) (Authority, bool) {
	for _, a := range d.ForCountry(country) {
		if a.ID == id {
			return a, true
		}
	}
	return Authority{}, false
}

func (d *Directory) reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading authorities file: %w", err)
	}
	byCountry, err := Parse(data)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.byCountry = byCountry
	d.mu.Unlock()
	return nil
}

// Watch reloads the directory whenever path is written or replaced. The parent
// directory is watched so rename-on-save editors keep triggering reloads. A bad
// edit keeps the previous list.
func (d *Directory) Watch(path string) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	d.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Infof("reloading authorities from %s", event.Name)
					if err := d.reload(path); err != nil {
						log.Errorf("reloading authorities: %+v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("watcher: %+v", err)
			}
		}
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		d.watcher = nil
		return fmt.Errorf("watching %s: %w", path, err)
	}
	return nil
}

func (d *Directory) Close() {
	if d.watcher != nil {
		d.watcher.Close()
	}
}
