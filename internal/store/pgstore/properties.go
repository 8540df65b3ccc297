package pgstore

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// Bulk inserts below back the ExtractProperties job handler, which writes
// thousands of rows per IFC file; each uses a single multi-VALUES INSERT
// built with squirrel rather than one round trip per row.

func (c *Client) InsertElements(ctx context.Context, els []*model.IfcElement) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	if len(els) == 0 {
		return nil
	}
	b := psql.Insert("ifc_elements").Columns("id", "model_version_id", "global_id", "entity_label", "type_name", "name")
	for _, e := range els {
		b = b.Values(e.ID, e.ModelVersionID, e.GlobalID, e.EntityLabel, e.TypeName, e.Name)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) InsertPropertySets(ctx context.Context, ps []*model.IfcPropertySet) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	if len(ps) == 0 {
		return nil
	}
	b := psql.Insert("ifc_property_sets").Columns("id", "element_id", "name")
	for _, p := range ps {
		b = b.Values(p.ID, p.ElementID, p.Name)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) InsertProperties(ctx context.Context, ps []*model.IfcProperty) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	if len(ps) == 0 {
		return nil
	}
	b := psql.Insert("ifc_properties").Columns("id", "property_set_id", "name", "value")
	for _, p := range ps {
		b = b.Values(p.ID, p.PropertySetID, p.Name, p.Value)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) InsertQuantitySets(ctx context.Context, qs []*model.IfcQuantitySet) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	if len(qs) == 0 {
		return nil
	}
	b := psql.Insert("ifc_quantity_sets").Columns("id", "element_id", "name")
	for _, q := range qs {
		b = b.Values(q.ID, q.ElementID, q.Name)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *Client) InsertQuantities(ctx context.Context, qs []*model.IfcQuantity) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	if len(qs) == 0 {
		return nil
	}
	b := psql.Insert("ifc_quantities").Columns("id", "quantity_set_id", "name", "value", "unit")
	for _, q := range qs {
		b = b.Values(q.ID, q.QuantitySetID, q.Name, q.Value, q.Unit)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *Client) elementCols() []string {
	return []string{"id", "model_version_id", "global_id", "entity_label", "type_name", "name"}
}

func (c *Client) ListElements(ctx context.Context, modelVersionID string, globalID, typeName, name string, f store.Filter) ([]*model.IfcElement, int, error) {
	if err := c.requireDB(); err != nil {
		return nil, 0, err
	}
	where := sqrl.And{sqrl.Eq{"model_version_id": modelVersionID}}
	if globalID != "" {
		where = append(where, sqrl.Eq{"global_id": globalID})
	}
	if typeName != "" {
		where = append(where, sqrl.Eq{"type_name": typeName})
	}
	if name != "" {
		where = append(where, sqrl.ILike{"name": "%" + name + "%"})
	}

	countQ, countArgs, err := psql.Select("COUNT(*)").From("ifc_elements").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := c.db.GetContext(ctx, &total, countQ, countArgs...); err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(f)
	q, args, err := psql.Select(c.elementCols()...).From("ifc_elements").Where(where).
		OrderBy("entity_label ASC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var out []*model.IfcElement
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c *Client) GetElement(ctx context.Context, elementID string) (*model.IfcElement, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.elementCols()...).From("ifc_elements").
		Where(sqrl.Eq{"id": elementID}).ToSql()
	if err != nil {
		return nil, err
	}
	var e model.IfcElement
	if err := c.db.GetContext(ctx, &e, q, args...); err != nil {
		return nil, scanNotFound(err, "ifc element")
	}
	return &e, nil
}

func (c *Client) ListPropertySetsForElement(ctx context.Context, elementID string) ([]*model.IfcPropertySet, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "element_id", "name").From("ifc_property_sets").
		Where(sqrl.Eq{"element_id": elementID}).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.IfcPropertySet
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPropertiesForSet(ctx context.Context, propertySetID string) ([]*model.IfcProperty, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "property_set_id", "name", "value").From("ifc_properties").
		Where(sqrl.Eq{"property_set_id": propertySetID}).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.IfcProperty
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ store.Properties = (*Client)(nil)
