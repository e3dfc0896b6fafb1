package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/ridoystarlord/rapidgen/schema"
)

// Operations lists the client methods the scaffold exposes, in route order.
var Operations = []string{"FindFirst", "FindMany", "Create", "CreateMany", "UpdateMany", "DeleteMany"}

// client qualifies an identifier declared by the generated client.
func (g *generator) client(name string) *jen.Statement {
	if g.opts.ClientPackage == "" {
		return jen.Id(name)
	}
	return jen.Qual(g.opts.ClientPackage, name)
}

// GenerateServer emits gin route registration for every model in db. Each
// operation is a POST route named after the client method, taking the
// method's arguments as the JSON body.
func GenerateServer(db *schema.Database, opts Options) ([]byte, error) {
	g := &generator{db: db, opts: opts}
	f := jen.NewFile(g.opts.pkg())
	f.HeaderComment(generatedBanner)
	f.ImportName(ginPackage, "gin")
	f.ImportName(RPCPackage, "rpc")

	for _, m := range db.Models {
		n := modelNames(m)
		f.Commentf("Scaffold%s registers the %s operations on r.", n.Type, n.Type)
		f.Func().Id("Scaffold"+n.Type).Params(
			jen.Id("r").Qual(ginPackage, "IRouter"),
			jen.Id("c").Op("*").Add(g.client(n.Client)),
		).BlockFunc(func(body *jen.Group) {
			for _, op := range Operations {
				body.Id("r").Dot("POST").Call(
					jen.Lit("/"+schema.LowerFirst(op)),
					jen.Qual(RPCPackage, "Handle").Call(jen.Id("c").Dot(op)),
				)
			}
		})
	}

	f.Comment("ScaffoldDatabase mounts every model under its own route group.")
	f.Func().Id("ScaffoldDatabase").Params(
		jen.Id("r").Qual(ginPackage, "IRouter"),
		jen.Id("client").Op("*").Add(g.client("Client")),
	).BlockFunc(func(body *jen.Group) {
		for _, m := range db.Models {
			n := modelNames(m)
			body.Id("Scaffold"+n.Type).Call(
				jen.Id("r").Dot("Group").Call(jen.Lit(n.Route)),
				jen.Id("client").Dot(n.ClientField),
			)
		}
	})

	return render(f)
}
