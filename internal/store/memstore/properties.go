package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) InsertElements(ctx context.Context, els []*model.IfcElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range els {
		cp := *e
		s.elements[e.ID] = &cp
	}
	return nil
}

func (s *Store) InsertPropertySets(ctx context.Context, ps []*model.IfcPropertySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		cp := *p
		s.propertySets[p.ID] = &cp
	}
	return nil
}

func (s *Store) InsertProperties(ctx context.Context, ps []*model.IfcProperty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		cp := *p
		s.properties[p.ID] = &cp
	}
	return nil
}

func (s *Store) InsertQuantitySets(ctx context.Context, qs []*model.IfcQuantitySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		cp := *q
		s.quantitySets[q.ID] = &cp
	}
	return nil
}

func (s *Store) InsertQuantities(ctx context.Context, qs []*model.IfcQuantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		cp := *q
		s.quantities[q.ID] = &cp
	}
	return nil
}

func (s *Store) ListElements(ctx context.Context, modelVersionID string, globalID, typeName, name string, f store.Filter) ([]*model.IfcElement, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.IfcElement
	for _, e := range s.elements {
		if e.ModelVersionID != modelVersionID {
			continue
		}
		if globalID != "" && e.GlobalID != globalID {
			continue
		}
		if typeName != "" && e.TypeName != typeName {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(name)) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EntityLabel < matched[j].EntityLabel })
	total := len(matched)
	limit, offset := clampPage(f)
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *Store) GetElement(ctx context.Context, elementID string) (*model.IfcElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[elementID]
	if !ok {
		return nil, store.ErrNotFound{What: "ifc element"}
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListPropertySetsForElement(ctx context.Context, elementID string) ([]*model.IfcPropertySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.IfcPropertySet
	for _, p := range s.propertySets {
		if p.ElementID == elementID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListPropertiesForSet(ctx context.Context, propertySetID string) ([]*model.IfcProperty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.IfcProperty
	for _, p := range s.properties {
		if p.PropertySetID == propertySetID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ store.Properties = (*Store)(nil)
