package schema

// Builtin returns the registry of supported vendors.
//
// CheckPoint appliances report a config and a system backup, order not
// significant, both stored under the firewall backup share with a free
// filename. F5 load balancers report an SCF and a UCS archive in that
// order; SCF filenames embed the export date and time before the
// extension, UCS archives keep a fixed extension.
func Builtin() *Registry {
	checkpoint, err := NewContract(
		"CheckPoint",
		"/media/fwbackup/backups/CheckPoint/",
		OrderAnySet,
		[]KindSpec{
			{Name: "config", Filename: `[^/]+`},
			{Name: "system", Filename: `[^/]+`},
		},
	)
	if err != nil {
		panic(err)
	}

	f5, err := NewContract(
		"F5",
		"/media/lbbackup/backups/F5/",
		OrderPositional,
		[]KindSpec{
			{Name: "SCF", Filename: `[^/]+-\d{8}-\d{4}\.scf`},
			{Name: "UCS", Filename: `[^/]+\.ucs`},
		},
	)
	if err != nil {
		panic(err)
	}

	return NewRegistry(checkpoint, f5)
}
