// Package compute provides the data-parallel vector primitives the
// integrator is built on.
//
// Every primitive runs over the full state vector. The CPU backend splits
// vectors into contiguous chunks, one per worker goroutine, and joins all
// workers before returning, so callers see a synchronous pipeline:
//
//	be := compute.NewCPUBackend()
//	be.Axpy(y, dt, f)
//	norm := be.WeightedRMS(y, w)
//
// Vectors shorter than the parallel threshold are processed on the calling
// goroutine. A backend owns reduction scratch and must not be shared by
// concurrent solvers.
package compute
