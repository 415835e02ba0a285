package datasheet

// DefaultSchema returns the built-in 40-field valve datasheet layout,
// used when no configuration directory is supplied. The layout mirrors
// config/field_mappings.yaml.
func DefaultSchema() *Schema {
	sec := func(name string, fields ...FieldDef) SectionDef {
		for i := range fields {
			fields[i].Section = name
			fields[i].Source = fields[i].Rule.kind()
		}

		return SectionDef{Name: name, Fields: fields}
	}

	return &Schema{
		sections: []SectionDef{
			sec("Header",
				FieldDef{Name: "vds_no", DisplayName: "VDS No", Required: true,
					Rule: VDSRule{Attribute: "vds_no"}},
				FieldDef{Name: "piping_class", DisplayName: "Piping Class", Required: true,
					Rule: VDSRule{Attribute: "piping_class"}},
				FieldDef{Name: "size_range", DisplayName: "Size Range",
					Rule: IndexRule{Column: "size_range"}},
				FieldDef{Name: "valve_type", DisplayName: "Valve Type", Required: true,
					Rule: VDSRule{Attribute: "valve_type"}},
				FieldDef{Name: "service", DisplayName: "Service", Required: true,
					Rule: PMSRule{Column: "service"}},
			),
			sec("Design Conditions",
				FieldDef{Name: "valve_standard", DisplayName: "Valve Standard", Required: true,
					Rule: VDSRule{Attribute: "primary_standard"}},
				FieldDef{Name: "pressure_class", DisplayName: "Pressure Class", Required: true,
					Rule: PMSRule{Column: "pressure_class"}},
				FieldDef{Name: "design_pressure", DisplayName: "Max Design Pressure", Required: true,
					Rule: PMSRule{Column: "design_pressure"}},
				FieldDef{Name: "design_temperature", DisplayName: "Design Temperature",
					Rule: PMSRule{Column: "design_temperature"}},
				FieldDef{Name: "corrosion_allowance", DisplayName: "Corrosion Allowance",
					Rule: PMSRule{Column: "corrosion_allowance"}},
				FieldDef{Name: "sour_service", DisplayName: "Sour Service", Required: true,
					Rule: VDSRule{Attribute: "conditional", When: "nace",
						Then: "NACE MR0175 / ISO 15156", Else: "-"}},
			),
			sec("Configuration",
				FieldDef{Name: "end_connections", DisplayName: "End Connections", Required: true,
					Rule: VDSRule{Attribute: "end_connections"}},
				FieldDef{Name: "face_to_face", DisplayName: "Face to Face", Required: true,
					Rule: StandardRule{Field: "face_to_face", Fallback: "ASME B16.10"}},
				FieldDef{Name: "operation", DisplayName: "Operation",
					Rule: StandardRule{Field: "operation",
						Fallback: `Lever (6" and below), Gear operated (8" and above)`}},
			),
			sec("Construction",
				FieldDef{Name: "body_construction", DisplayName: "Body Construction",
					Rule: StandardRule{Field: "body_construction",
						Fallback: `Forged, Two Piece (1.5" and below), Cast, Two / Three Piece (2" and above)`}},
				FieldDef{Name: "ball_construction", DisplayName: "Ball Construction",
					Rule: StandardRule{Field: "ball_construction",
						Fallback: `Floating (4" and below), Trunnion mounted (6" and above)`}},
				FieldDef{Name: "stem_construction", DisplayName: "Stem Construction",
					Rule: StandardRule{Field: "stem_construction", Fallback: "Anti blow-out"}},
				FieldDef{Name: "seat_construction", DisplayName: "Seat Construction",
					Rule: VDSRule{Attribute: "conditional", When: "metal_seated",
						Then: "Metal seated, hard faced, Renewable",
						Else: "Soft seated, Renewable"}},
				FieldDef{Name: "locks", DisplayName: "Locks",
					Rule: FixedRule{Value: "Lockable in both open & closed positions"}},
			),
			sec("Materials",
				FieldDef{Name: "body_material", DisplayName: "Body Material", Required: true,
					Rule: MaterialRule{Component: "body"}},
				FieldDef{Name: "ball_material", DisplayName: "Ball Material",
					Rule: IndexRule{Column: "ball_material"}},
				FieldDef{Name: "trim_material", DisplayName: "Trim Material",
					Rule: IndexRule{Column: "trim_material"}},
				FieldDef{Name: "seat_material", DisplayName: "Seat Material",
					Rule: IndexRule{Column: "seat_material"}},
				FieldDef{Name: "seal_material", DisplayName: "Seal Material",
					Rule: IndexRule{Column: "seal_material"}},
				FieldDef{Name: "stem_material", DisplayName: "Stem Material",
					Rule: MaterialRule{Component: "stem"}},
				FieldDef{Name: "gland_packing", DisplayName: "Gland Packing",
					Rule: MaterialRule{Component: "gland_packing"}},
				FieldDef{Name: "gaskets", DisplayName: "Gaskets", Required: true,
					Rule: MaterialRule{Component: "gaskets"}},
				FieldDef{Name: "bolts", DisplayName: "Bolts", Required: true,
					Rule: MaterialRule{Component: "bolts"}},
				FieldDef{Name: "nuts", DisplayName: "Nuts", Required: true,
					Rule: MaterialRule{Component: "nuts"}},
				FieldDef{Name: "lever_handwheel", DisplayName: "Lever / Handwheel",
					Rule: FixedRule{Value: "Lever / Handwheel with position indicator"}},
			),
			sec("Testing & Certification",
				FieldDef{Name: "marking_purchaser", DisplayName: "Marking (Purchaser)",
					Rule: FixedRule{Value: "VDS No & Tag No on SS nameplate"}},
				FieldDef{Name: "marking_manufacturer", DisplayName: "Marking (Manufacturer)",
					Rule: StandardRule{Field: "marking_manufacturer", Fallback: "MSS SP-25"}},
				FieldDef{Name: "inspection_testing", DisplayName: "Inspection & Testing", Required: true,
					Rule: StandardRule{Field: "inspection_testing", Fallback: "API 598"}},
				FieldDef{Name: "leakage_rate", DisplayName: "Leakage Rate",
					Rule: StandardRule{Field: "leakage_rate", Fallback: "ISO 5208 Rate A"}},
				FieldDef{Name: "hydrotest_shell", DisplayName: "Hydrotest (Shell)", Required: true,
					Rule: CalcRule{Factor: 1.5, Unit: "barg"}},
				FieldDef{Name: "hydrotest_closure", DisplayName: "Hydrotest (Closure)", Required: true,
					Rule: CalcRule{Factor: 1.1, Unit: "barg"}},
				FieldDef{Name: "pneumatic_test", DisplayName: "Pneumatic Test",
					Rule: FixedRule{Value: "5.5 barg"}},
				FieldDef{Name: "material_certification", DisplayName: "Material Certification",
					Rule: FixedRule{Value: "EN 10204 3.1"}},
				FieldDef{Name: "fire_rating", DisplayName: "Fire Rating",
					Rule: StandardRule{Field: "fire_rating", Fallback: "API 607 / API 6FA"}},
				FieldDef{Name: "finish", DisplayName: "Finish",
					Rule: FixedRule{Value: "Manufacturer standard paint system"}},
			),
		},
		crossChecks: []CrossCheck{
			{RatingField: "pressure_class", PressureField: "design_pressure"},
		},
	}
}
