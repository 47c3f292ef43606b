/*
Package matsys is a material and shader runtime. It parses KeyValues material
definitions, resolves patch includes, shader fallbacks and fallback-material
redirects, stores typed per-material variables with a deferred mutation queue
for producer goroutines, and compiles backend snapshots for every legal
combination of dynamic rendering toggles.

Document example:

	VertexLitGeneric
	{
		$basetexture "models/props/crate"
		$color "[1 .5 .5]"
		$translucent 1

		">=dx95"
		{
			$alpha 0.5
		}
	}

Reader example:

	doc, err := matsys.DecodeFile("materials/crate.vmt", nil)
	if err != nil {
		// handle error
	}

Writer example:

	out, err := matsys.Format(doc, nil)
	if err != nil {
		// handle error
	}

Runtime example:

	store := matsys.NewVariableStore(nil)
	defer store.Close()

	sys, err := matsys.NewSystem(store, matsys.Environment{
		Files:    matsys.FSReader{FS: os.DirFS("materials")},
		Textures: textures,
		Backend:  nullgfx.NewBackend(),
	}, nil)
	if err != nil {
		// handle error
	}
	stdshader.Register(sys.Registry())

	m := sys.FindMaterial("props/crate", "model")
	m.IncRef()
	m.Precache()
	m.Draw(matsys.ModFlashlight, cmd)

Threaded access example:

	store.BeginThreadedAccess()
	go func() { m.Var("$alpha").SetFloat(0.25) }() // staged, not yet visible
	// ...
	store.EndThreadedAccess() // replays staged writes in order

Validator example:

	issues := matsys.Validate("props/crate", doc, sys.Registry(), nil)
	if len(issues) != 0 {
		// handle validation issues
	}
*/
package matsys
