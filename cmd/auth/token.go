package auth

import (
	"fmt"
	"sort"

	"frp-manager/cmd/root"
	"frp-manager/internal/config"
	"frp-manager/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a local user",
	Long:  `Issue an API token signed with auth.jwt_secret, for scripts calling the HTTP API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := optDecode
		if token == "" {
			var err error
			if token, err = issueToken(); err != nil {
				return err
			}
			fmt.Println(token)
		}
		if optViewJwt || optDecode != "" {
			return printClaims(token)
		}
		return nil
	},
}

const tokenExample = `  # Token for the default admin
  frp-manager token
  # Token for alice, with decoded claims
  frp-manager token --as alice --jwt
  # Decode an existing token
  frp-manager token --decode eyJhbGciOi...`

func issueToken() (string, error) {
	cfg := &config.Config
	users, err := root.OpenUsers()
	if err != nil {
		return "", err
	}
	name := root.AsUser
	if name == "" {
		name = cfg.Auth.AdminUsername
	}
	user, ok := users.FindByUsername(name)
	if !ok {
		return "", fmt.Errorf("user '%s' not found", name)
	}
	return services.NewAuthService(users, cfg.Auth.JwtSecret, cfg.Auth.TokenTTL).IssueToken(user)
}

// Parse token without verification
func printClaims(tokenString string) error {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	fmt.Printf("============= JWT ==============\n")
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %v\n", k, claims[k])
	}
	return nil
}

var (
	optViewJwt bool
	optDecode  string
)

func init() {
	tokenCmd.Flags().SortFlags = false
	tokenCmd.Flags().BoolVarP(&optViewJwt, "jwt", "j", false, "Display the decoded JWT")
	tokenCmd.Flags().StringVarP(&optDecode, "decode", "d", "", "Decode this token instead of issuing one")
	tokenCmd.Example = tokenExample
	root.RootCmd.AddCommand(tokenCmd)
}
