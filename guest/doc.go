// Package guest runs hello guests natively on wazero.
//
// An Engine owns one wazero runtime and the env host module every guest
// imports. Components created from the engine are module wrappers: Init
// reads the module from a go-billy filesystem, compiles it (compiled modules
// are cached by content hash) and instantiates it; Render calls
// render_component and decodes the returned tree.
//
//	eng, err := guest.NewEngine(ctx, &guest.Config{MemoryLimitPages: 256})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close(ctx)
//
//	c := eng.Component(osfs.New("web"), "./hello.wasm")
//	if err := c.Init(ctx); err != nil {
//	    return err
//	}
//	res, err := c.Render(ctx) // {Tag: "div", Text: ""}
//
// # Host Functions
//
//	env.platform_write(ptr, len)  guest output, collected by Component.Output
//	env.platform_rerender()       sets the rerender flag reported by Click
//
// Calls are routed to the component that made them by instance name.
// Guests that import wasi_snapshot_preview1 get WASI on first use; any other
// import fails Init with a MissingImportsError.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Component is NOT thread-safe.
package guest
