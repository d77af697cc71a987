// Package logevents routes log events through a hierarchy of named loggers.
//
// Every dotted name ("com.example.payments") is a logger whose parent is the
// name without its last segment; the root has the empty name. A logger
// either has its own threshold or inherits the effective threshold of its
// parent. Observers compose the same way: unless told otherwise a logger
// sends events to its parent's observers first and then to its own.
//
//	reg := logevents.NewRegistry()
//	reg.Reset(observers.NewConsole(), types.LevelInfo)
//	reg.SetLevel("com.example.payments", types.LevelDebug)
//	reg.AddObserver("com.example.payments", file)
//
//	log := reg.Logger("com.example.payments.refunds")
//	log.Debug("refund %s queued", id)
//
// Configuration changes are rare and serialized; every change recomputes
// the effective values of the affected subtree and publishes them to the
// nodes, so emitting an event never takes a lock.
//
// The process-wide registry returned by Default is configured by the
// Configurators registered with RegisterConfigurator, and Reset discards it.
package logevents
