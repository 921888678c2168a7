// Package search maintains a free-text index over the names of inventory
// objects, used for suggestion searches.
package search

import (
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

const (
	fieldKey   = "key"
	fieldClass = "className"
)

// Index is an in-memory bleve index of object names.
type Index struct {
	lock    sync.RWMutex
	index   bleve.Index
	objects map[string]models.ObjectLight
}

// NewMemIndex creates an empty memory only index.
func NewMemIndex() (*Index, error) {
	doc := bleve.NewDocumentMapping()
	key := bleve.NewTextFieldMapping()
	key.Analyzer = keyword.Name
	doc.AddFieldMappingsAt(fieldKey, key)
	cls := bleve.NewTextFieldMapping()
	cls.Analyzer = keyword.Name
	doc.AddFieldMappingsAt(fieldClass, cls)

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = doc

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}
	return &Index{index: idx, objects: map[string]models.ObjectLight{}}, nil
}

// Index adds or replaces an object.
func (i *Index) Index(obj models.ObjectLight) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	err := i.index.Index(obj.ID, map[string]interface{}{
		fieldKey:   strings.ToLower(obj.Name),
		fieldClass: obj.ClassName,
	})
	if err != nil {
		return err
	}
	i.objects[obj.ID] = obj
	return nil
}

// Remove drops an object. Unknown ids are ignored.
func (i *Index) Remove(id string) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	if _, ok := i.objects[id]; !ok {
		return nil
	}
	if err := i.index.Delete(id); err != nil {
		return err
	}
	delete(i.objects, id)
	return nil
}

// Suggest returns the objects whose name contains text, ignoring case,
// ordered by name. A non positive limit returns all matches.
func (i *Index) Suggest(text string, limit int) ([]models.ObjectLight, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	term := strings.ToLower(strings.NewReplacer("*", "", "?", "").Replace(text))
	q := bleve.NewWildcardQuery("*" + term + "*")
	q.SetField(fieldKey)

	size := len(i.objects)
	if size == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, err
	}
	result := make([]models.ObjectLight, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if obj, ok := i.objects[hit.ID]; ok {
			result = append(result, obj)
		}
	}
	models.SortObjects(result)
	log.Debug("suggestion {{text}} matched {{count}} objects", "text", text, "count", len(result))
	return models.Limit(result, limit), nil
}

// Count returns the number of indexed objects.
func (i *Index) Count() int {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return len(i.objects)
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
