// Package shape maps delegate shapes to the wrapper code that invokes them.
//
// A shape is the calling signature of a delegate together with its native
// calling convention. For every shape the code generator supplies one
// Wrapper: a function that runs on the raw native value stack, fetches the
// delegate bound to the current thunk, unpacks the words into typed
// arguments, calls the delegate, and packs the result back.
//
//	reg := shape.NewRegistry()
//	reg.Register(key, shape.Wrapper{
//	    Params:  []api.ValueType{api.ValueTypeI32},
//	    Results: []api.ValueType{api.ValueTypeI32},
//	    Func: func(ctx context.Context, stack []uint64) {
//	        fn := thunk.CurrentDelegate(ctx).(func(int32) int32)
//	        stack[0] = api.EncodeI32(fn(api.DecodeI32(stack[0])))
//	    },
//	})
//
// Keys are derived from a delegate's declared type with KeyOf, so every
// value of one named func type shares a shape.
package shape
