package dashspec

// schemaSource constrains every dashboard declaration.
const schemaSource = `
#Kind: "number" | "string" | "date" | "bool" | "list" | "object" | "any"

#Ref: =~"^.+\\.[^.]+$"

#Derived: {
	dataset: string
	column:  string
	op:      "min" | "max" | "extent" | "distinct" | "first"
	sorted?: bool
	prepend?: [...]
}

#Property: {
	type:     #Kind
	default?: _
	from?:    #Derived
}

#Source: {
	source: string
	drop?: [...string]
	types?: [string]: #Kind
}

#Callback: {
	handler: string
	outputs: [#Ref, ...#Ref]
	inputs: [#Ref, ...#Ref]
	state: [...#Ref] | *[]
}

#Dashboard: {
	title: string | *""
	datasets: [string]: #Source
	components: [string]: [string]: #Property
	callbacks: [string]: #Callback
}

dashboard: [string]: #Dashboard
`
