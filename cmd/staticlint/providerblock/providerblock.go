// Package providerblock defines an analyzer that reports blocking calls made
// from provider Get methods. Providers run inline with form submission and
// may only read in-memory state.
package providerblock

import (
	"fmt"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer is the providerblock analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "providerblock",
	Doc:      "reports sleeping, network, file and database calls inside provider Get methods",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// PackageName selects the packages the analyzer inspects.
var PackageName = "providers"

var blocking = map[string]map[string]bool{
	"time": {"Sleep": true},
	"net/http": {
		"Get": true, "Head": true, "Post": true, "PostForm": true, "Do": true,
	},
	"os": {
		"Open": true, "OpenFile": true, "Create": true, "ReadFile": true,
		"ReadDir": true, "WriteFile": true, "Stat": true, "Lstat": true,
	},
	"database/sql": {
		"Query": true, "QueryContext": true, "QueryRow": true, "QueryRowContext": true,
		"Exec": true, "ExecContext": true, "Ping": true, "PingContext": true,
	},
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg == nil || pass.Pkg.Name() != PackageName {
		return nil, nil
	}

	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fd, ok := n.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Name.Name != "Get" || fd.Body == nil {
			return
		}
		ast.Inspect(fd.Body, func(nn ast.Node) bool {
			call, ok := nn.(*ast.CallExpr)
			if !ok {
				return true
			}
			if name, bad := blockingCallee(pass.TypesInfo, call); bad {
				pass.Reportf(call.Pos(), "provider Get must not block: call to %s", name)
			}
			return true
		})
	})
	return nil, nil
}

func blockingCallee(info *types.Info, call *ast.CallExpr) (string, bool) {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}
	names, ok := blocking[fn.Pkg().Path()]
	if !ok || !names[fn.Name()] {
		return "", false
	}
	return fn.FullName(), true
}
