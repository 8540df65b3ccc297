// Package ifcengine is the named interface for the IFC-to-viewer geometry
// translator and property extractor — explicitly an opaque external
// collaborator, not something this repo implements (spec's scope
// boundary). jobqueue drives this interface; HTTPEngine calls out to
// wherever that translator actually runs, and StubEngine is a
// deterministic local fallback for tests and environments without one
// configured.
package ifcengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ifcserve/hub/internal/model"
)

// Properties is the parsed output of ExtractProperties: elements and their
// attached property/quantity sets, ready for bulk insertion via
// store.Properties.
type Properties struct {
	Elements     []*model.IfcElement
	PropertySets []*model.IfcPropertySet
	Properties   []*model.IfcProperty
	QuantitySets []*model.IfcQuantitySet
	Quantities   []*model.IfcQuantity
}

// Engine is the boundary the job pipeline depends on. Implementations
// never touch the catalog store directly — jobqueue owns persistence —
// they only translate bytes.
type Engine interface {
	ToWexBim(ctx context.Context, ifcSource io.Reader) ([]byte, error)
	ExtractProperties(ctx context.Context, modelVersionID string, ifcSource io.Reader) (*Properties, error)
}

// HTTPEngine delegates both operations to an external translator service
// over HTTP, the same "configured external agent, degrade if absent" shape
// as the teacher's AI-agent client (jobs/pkg/bootstrap.initAIClient): with
// an empty endpoint both methods return ErrNotConfigured. cmd/server builds
// a StubEngine instead of an HTTPEngine when no endpoint is configured.
type HTTPEngine struct {
	endpoint string
	client   *http.Client
}

func NewHTTPEngine(endpoint string) *HTTPEngine {
	return &HTTPEngine{endpoint: endpoint, client: &http.Client{Timeout: 2 * time.Minute}}
}

var ErrNotConfigured = fmt.Errorf("ifc translation engine endpoint is not configured")

func (e *HTTPEngine) ToWexBim(ctx context.Context, ifcSource io.Reader) ([]byte, error) {
	if e.endpoint == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/wexbim", ifcSource)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translation engine returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (e *HTTPEngine) ExtractProperties(ctx context.Context, modelVersionID string, ifcSource io.Reader) (*Properties, error) {
	if e.endpoint == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/properties", ifcSource)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translation engine returned status %d", resp.StatusCode)
	}
	var wire wireProperties
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, err
	}
	return wire.toDomain(modelVersionID), nil
}

// wireProperties is the translator service's JSON response shape.
type wireProperties struct {
	Elements []struct {
		GlobalID    string `json:"globalId"`
		EntityLabel int64  `json:"entityLabel"`
		TypeName    string `json:"typeName"`
		Name        string `json:"name"`
		PropertySets []struct {
			Name       string `json:"name"`
			Properties []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"properties"`
		} `json:"propertySets"`
		QuantitySets []struct {
			Name       string `json:"name"`
			Quantities []struct {
				Name  string  `json:"name"`
				Value float64 `json:"value"`
				Unit  string  `json:"unit"`
			} `json:"quantities"`
		} `json:"quantitySets"`
	} `json:"elements"`
}

func (w wireProperties) toDomain(modelVersionID string) *Properties {
	out := &Properties{}
	for i, el := range w.Elements {
		elementID := fmt.Sprintf("%s-el-%d", modelVersionID, i)
		out.Elements = append(out.Elements, &model.IfcElement{
			ID: elementID, ModelVersionID: modelVersionID, GlobalID: el.GlobalID,
			EntityLabel: el.EntityLabel, TypeName: el.TypeName, Name: el.Name,
		})
		for j, ps := range el.PropertySets {
			psID := fmt.Sprintf("%s-ps-%d-%d", modelVersionID, i, j)
			out.PropertySets = append(out.PropertySets, &model.IfcPropertySet{ID: psID, ElementID: elementID, Name: ps.Name})
			for k, p := range ps.Properties {
				out.Properties = append(out.Properties, &model.IfcProperty{
					ID: fmt.Sprintf("%s-p-%d", psID, k), PropertySetID: psID, Name: p.Name, Value: p.Value,
				})
			}
		}
		for j, qs := range el.QuantitySets {
			qsID := fmt.Sprintf("%s-qs-%d-%d", modelVersionID, i, j)
			out.QuantitySets = append(out.QuantitySets, &model.IfcQuantitySet{ID: qsID, ElementID: elementID, Name: qs.Name})
			for k, q := range qs.Quantities {
				out.Quantities = append(out.Quantities, &model.IfcQuantity{
					ID: fmt.Sprintf("%s-q-%d", qsID, k), QuantitySetID: qsID, Name: q.Name, Value: q.Value, Unit: q.Unit,
				})
			}
		}
	}
	return out
}

// MarshalSummary renders Properties back to JSON for the artifact blob
// uploaded alongside the relational rows (spec's "uploads an extracted-
// properties blob").
func MarshalSummary(p *Properties) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
