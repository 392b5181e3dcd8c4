package registry

// Default returns a registry pre-populated with common form components.
func Default() *Registry {
	r := New()
	for _, d := range defaultComponents {
		// The built-in definitions are valid by construction.
		if _, err := r.Register(d.id, d.name, d.code, d.opts...); err != nil {
			panic(err)
		}
	}
	return r
}

type builtin struct {
	id, name, code string
	opts           []Option
}

var defaultComponents = []builtin{
	{
		id:   "email_input",
		name: "Email Input Field",
		code: `TextField(
  controller: controller,
  decoration: InputDecoration(
    labelText: "Email",
    hintText: "you@example.com",
    prefixIcon: Icon(Icons.email),
    border: OutlineInputBorder(),
  ),
  keyboardType: TextInputType.emailAddress,
)`,
		opts: []Option{
			WithParameters("controller"),
			WithDescription("Standard email input field with validation"),
			WithCategory("forms"),
			WithTags("input", "email", "form", "validation"),
		},
	},
	{
		id:   "password_input",
		name: "Password Input Field",
		code: `TextField(
  controller: controller,
  obscureText: true,
  decoration: InputDecoration(
    labelText: "Password",
    prefixIcon: Icon(Icons.lock),
    border: OutlineInputBorder(),
  ),
)`,
		opts: []Option{
			WithParameters("controller"),
			WithDescription("Password input field with masking"),
			WithCategory("forms"),
			WithTags("input", "password", "form", "security"),
		},
	},
	{
		id:   "primary_button",
		name: "Primary Action Button",
		code: `ElevatedButton(
  onPressed: onPressed,
  style: ElevatedButton.styleFrom(
    minimumSize: Size(double.infinity, 50),
    shape: RoundedRectangleBorder(
      borderRadius: BorderRadius.circular(8),
    ),
  ),
  child: Text(label),
)`,
		opts: []Option{
			WithParameters("onPressed", "label"),
			WithDescription("Full-width primary action button"),
			WithCategory("buttons"),
			WithTags("button", "action", "primary"),
		},
	},
}
