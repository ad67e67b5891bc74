// Package config loads pool configuration from HCL files.
//
//	capacity        = 4096
//	strategy        = "round-robin"   # or "free-list"
//	stub_params     = 4
//	stub_results    = 1
//	entry_base      = 1
//	entry_stride    = 1
//	goroutine_local = false
//	module_name     = "thunks"
//	table_module    = "thunk_table"
//	caller_module   = "thunk_caller"
//	log_level       = "info"
//
// Every attribute is optional; unset attributes keep the values of Default.
package config
