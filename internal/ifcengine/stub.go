package ifcengine

import (
	"context"
	"io"

	"github.com/ifcserve/hub/internal/model"
)

// StubEngine is a deterministic local fallback used in tests and any
// deployment that hasn't wired a real translator. It does not parse IFC
// geometry — it produces a placeholder wexBIM payload and a single
// synthetic element per call, enough to exercise the full upload-to-Ready
// pipeline without a real translator attached.
type StubEngine struct{}

func (StubEngine) ToWexBim(ctx context.Context, ifcSource io.Reader) ([]byte, error) {
	data, err := io.ReadAll(ifcSource)
	if err != nil {
		return nil, err
	}
	return append([]byte("WEXBIM-STUB\x00"), data...), nil
}

func (StubEngine) ExtractProperties(ctx context.Context, modelVersionID string, ifcSource io.Reader) (*Properties, error) {
	if _, err := io.Copy(io.Discard, ifcSource); err != nil {
		return nil, err
	}
	elementID := modelVersionID + "-el-0"
	psID := elementID + "-ps-0"
	qsID := elementID + "-qs-0"
	return &Properties{
		Elements: []*model.IfcElement{
			{ID: elementID, ModelVersionID: modelVersionID, GlobalID: "STUB0000", EntityLabel: 1, TypeName: "IfcBuildingElementProxy", Name: "Stub Element"},
		},
		PropertySets: []*model.IfcPropertySet{
			{ID: psID, ElementID: elementID, Name: "Pset_Stub"},
		},
		Properties: []*model.IfcProperty{
			{ID: psID + "-p-0", PropertySetID: psID, Name: "Reference", Value: "stub"},
		},
		QuantitySets: []*model.IfcQuantitySet{
			{ID: qsID, ElementID: elementID, Name: "Qto_Stub"},
		},
		Quantities: []*model.IfcQuantity{
			{ID: qsID + "-q-0", QuantitySetID: qsID, Name: "Length", Value: 1, Unit: "m"},
		},
	}, nil
}

var _ Engine = StubEngine{}
