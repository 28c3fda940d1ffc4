package sim

import "fmt"

// LayerKind is a tagged variant over the layer types the VCNPU executes.
// The original source dispatches on a bare string `type` field; spec.md §9
// asks for a real tagged variant instead, rejecting unknown kinds at load
// time rather than falling through silently.
type LayerKind int

const (
	KindConv LayerKind = iota
	KindRFConv
	KindRFDeConv
	KindDfConv
)

func (k LayerKind) String() string {
	switch k {
	case KindConv:
		return "Conv"
	case KindRFConv:
		return "RFConv"
	case KindRFDeConv:
		return "RFDeConv"
	case KindDfConv:
		return "DfConv"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// ParseLayerKind maps the textual kind name used in model/layer-list files
// to a LayerKind, rejecting anything unrecognized (spec.md §9).
func ParseLayerKind(s string) (LayerKind, error) {
	switch s {
	case "Conv":
		return KindConv, nil
	case "RFConv":
		return KindRFConv, nil
	case "RFDeConv":
		return KindRFDeConv, nil
	case "DfConv":
		return KindDfConv, nil
	default:
		return 0, fmt.Errorf("unknown layer kind %q", s)
	}
}

// LayerSpec describes one layer of the video-restoration network.
// Immutable after model load (spec.md §3).
type LayerSpec struct {
	Name   string
	Kind   LayerKind
	CIn    int
	COut   int
	Kernel int // k, used only for the approximate nonzero count of non-RF (Conv, DfConv) layers

	// Mu and Rho are populated only for RFConv/RFDeConv layers:
	// Mu=4, Rho=0.375 for RFConv; Mu=6, Rho=0.50 for RFDeConv.
	Mu  int
	Rho float64
}

// NewRFConvLayer builds an RFConv layer with the documented µ=4, ρ=0.375 transform parameters.
func NewRFConvLayer(name string, cIn, cOut int) LayerSpec {
	return LayerSpec{Name: name, Kind: KindRFConv, CIn: cIn, COut: cOut, Mu: 4, Rho: 0.375}
}

// NewRFDeConvLayer builds an RFDeConv layer with the documented µ=6, ρ=0.50 transform parameters.
func NewRFDeConvLayer(name string, cIn, cOut int) LayerSpec {
	return LayerSpec{Name: name, Kind: KindRFDeConv, CIn: cIn, COut: cOut, Mu: 6, Rho: 0.50}
}

// NewDfConvLayer builds a deformable-convolution layer.
func NewDfConvLayer(name string, cIn, cOut, kernel int) LayerSpec {
	return LayerSpec{Name: name, Kind: KindDfConv, CIn: cIn, COut: cOut, Kernel: kernel}
}

// NewConvLayer builds a plain convolution layer (feature extraction /
// reconstruction scaffolding that merely pads the layer list — spec.md §1).
func NewConvLayer(name string, cIn, cOut, kernel int) LayerSpec {
	return LayerSpec{Name: name, Kind: KindConv, CIn: cIn, COut: cOut, Kernel: kernel}
}

// IsSparse reports whether this layer is executed by the SFTM sparse
// compute engine with a sparse mask (RFConv/RFDeConv), as opposed to
// DfConv (DPM only) or plain Conv, which has no mask and is costed by the
// SFTM analytic fallback.
func (l LayerSpec) IsSparse() bool {
	return l.Kind == KindRFConv || l.Kind == KindRFDeConv
}

// SkipsSFTM reports whether this layer's tiles bypass the SFTM/SCU cost
// model and the banked group-FIFO entirely, feeding the DPM consumer
// directly. DfConv has no reference region to fetch and no transform
// coefficients for the SCU grid to cost, so it never touches SFTM
// (original_source/Sim/vcnpu.py Controller.start_frame: RFConv/RFDeConv/
// Conv enqueue onto the SFTM core, DfConv enqueues straight onto DPM).
func (l LayerSpec) SkipsSFTM() bool {
	return l.Kind == KindDfConv
}

// ApproxNonzeros estimates the number of nonzero transform-domain weights
// for a layer without a loaded mask: µ²·C_in·C_out·ρ for RF layers,
// k²·C_in·C_out otherwise. The SFTM cost model does not call it;
// AnalyticTileCost computes its own multiply count.
// Grounded in original_source/Sim/vcnpu.py:Controller.load_model.
func (l LayerSpec) ApproxNonzeros() int {
	switch l.Kind {
	case KindRFConv:
		return int(float64(l.Mu*l.Mu*l.CIn*l.COut) * l.Rho)
	case KindRFDeConv:
		return int(float64(l.Mu*l.Mu*l.CIn*l.COut) * l.Rho)
	default:
		return l.Kernel * l.Kernel * l.CIn * l.COut
	}
}
