// Package abi decodes the render tree a guest returns from render_component.
//
// The guest is a wasm32 module. Pointers and size_t are 32 bits wide, little
// endian, and structs use natural alignment:
//
//	struct Element {            // 28 bytes
//	    const char* type;       //  0
//	    char* text;             //  4
//	    Children* children;     //  8
//	    void (*on_click)(void*);// 12  function table index
//	    void* on_click_args;    // 16
//	    Attributes* attributes; // 20
//	    size_t index;           // 24
//	};
//
//	struct Children   { size_t count; size_t capacity; Element** items; };   // 12 bytes
//	struct Attributes { size_t count; size_t capacity; Attribute** items; }; // 12 bytes
//	struct Attribute  { const char* name; const char* value; };              //  8 bytes
//
// Strings are NUL terminated. A NULL text pointer decodes as the empty string.
// Element indices start at IndexOffset; pass Node.Index to invoke_on_click.
package abi
