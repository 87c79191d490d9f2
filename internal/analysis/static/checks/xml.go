// Filename: checks/xml.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

const (
	featureDisallowDoctype   = "http://apache.org/xml/features/disallow-doctype-decl"
	featureGeneralEntities   = "http://xml.org/sax/features/external-general-entities"
	featureParameterEntities = "http://xml.org/sax/features/external-parameter-entities"
	featureLoadExternalDTD   = "http://apache.org/xml/features/nonvalidating/load-external-dtd"

	propertyExternalDTD        = "http://javax.xml.XMLConstants/property/accessExternalDTD"
	propertyExternalSchema     = "http://javax.xml.XMLConstants/property/accessExternalSchema"
	propertyExternalStylesheet = "http://javax.xml.XMLConstants/property/accessExternalStylesheet"

	staxSupportDTD        = "javax.xml.stream.supportDTD"
	staxExternalEntities  = "javax.xml.stream.isSupportingExternalEntities"
	jdomSAXBuilder        = "org.jdom2.input.SAXBuilder"
	dom4jSAXReader        = "org.dom4j.io.SAXReader"
	xmlReaderFactory      = "org.xml.sax.helpers.XMLReaderFactory"
	documentBuilderFact   = "javax.xml.parsers.DocumentBuilderFactory"
	saxParserFactory      = "javax.xml.parsers.SAXParserFactory"
	xmlInputFactory       = "javax.xml.stream.XMLInputFactory"
	transformerFactory    = "javax.xml.transform.TransformerFactory"
	schemaFactory         = "javax.xml.validation.SchemaFactory"
	validationSchema      = "javax.xml.validation.Schema"
	xxeMessageRestriction = "Disable access to external entities in XML parsing."
)

func setFeature(feature string, enabled bool) h.Requirement {
	return h.When(h.CallOn{
		Method: h.Named("setFeature"),
		Args:   []h.ArgCheck{h.Equals(0, feature), h.Equals(1, enabled)},
	})
}

func setEmpty(method, property string) h.Requirement {
	return h.When(h.CallOn{
		Method: h.Named(method),
		Args:   []h.ArgCheck{h.Equals(0, property), h.Equals(1, "")},
	})
}

func setProperty(property string, value any) h.Requirement {
	return h.When(h.CallOn{
		Method: h.Named("setProperty"),
		Args:   []h.ArgCheck{h.Equals(0, property), h.Equals(1, value)},
	})
}

// saxHardened covers the SAX-style feature switches shared by most parsers.
func saxHardened() h.Requirement {
	return h.AnyOf(
		setFeature(featureDisallowDoctype, true),
		h.AllOf(
			setFeature(featureGeneralEntities, false),
			setFeature(featureParameterEntities, false),
		),
	)
}

func xxeRule(id, name string, triggers []h.Trigger, securing h.Requirement) *h.Rule {
	return &h.Rule{
		ID:       id,
		Name:     name,
		Message:  xxeMessageRestriction,
		Severity: h.SeverityCritical,
		CWE:      []int{611},
		Triggers: triggers,
		Securing: securing,
	}
}

func factoryTrigger(owner string, names ...string) []h.Trigger {
	return []h.Trigger{{Method: h.Method([]string{owner}, names...), Object: h.Result()}}
}

func xmlRules() []*h.Rule {
	return []*h.Rule{
		xxeRule("xxe-document-builder-factory", "DocumentBuilderFactory disables external entities",
			factoryTrigger(documentBuilderFact, "newInstance", "newDefaultInstance", "newNSInstance", "newDefaultNSInstance"),
			h.AnyOf(
				setFeature(featureDisallowDoctype, true),
				h.AllOf(
					setEmpty("setAttribute", propertyExternalDTD),
					setEmpty("setAttribute", propertyExternalSchema),
				),
				h.AllOf(
					setFeature(featureGeneralEntities, false),
					setFeature(featureParameterEntities, false),
					setFeature(featureLoadExternalDTD, false),
				),
			)),
		xxeRule("xxe-sax-parser-factory", "SAXParserFactory disables external entities",
			factoryTrigger(saxParserFactory, "newInstance", "newDefaultInstance", "newNSInstance", "newDefaultNSInstance"),
			saxHardened()),
		xxeRule("xxe-xml-input-factory", "XMLInputFactory disables DTDs",
			factoryTrigger(xmlInputFactory, "newInstance", "newFactory", "newDefaultFactory"),
			h.AnyOf(
				setProperty(staxSupportDTD, false),
				setProperty(staxExternalEntities, false),
				setEmpty("setProperty", propertyExternalDTD),
			)),
		xxeRule("xxe-transformer-factory", "TransformerFactory restricts external DTDs and stylesheets",
			factoryTrigger(transformerFactory, "newInstance", "newDefaultInstance"),
			h.AllOf(
				setEmpty("setAttribute", propertyExternalDTD),
				setEmpty("setAttribute", propertyExternalStylesheet),
			)),
		xxeRule("xxe-schema-factory", "SchemaFactory restricts external DTDs and schemas",
			factoryTrigger(schemaFactory, "newInstance", "newDefaultInstance"),
			h.AllOf(
				setEmpty("setProperty", propertyExternalDTD),
				setEmpty("setProperty", propertyExternalSchema),
			)),
		xxeRule("xxe-validator", "Validator restricts external DTDs and schemas",
			factoryTrigger(validationSchema, "newValidator"),
			h.AllOf(
				setEmpty("setProperty", propertyExternalDTD),
				setEmpty("setProperty", propertyExternalSchema),
			)),
		xxeRule("xxe-xml-reader", "XMLReader disables external entities",
			factoryTrigger(xmlReaderFactory, "createXMLReader"),
			saxHardened()),
		xxeRule("xxe-jdom-sax-builder", "JDOM SAXBuilder disables external entities",
			[]h.Trigger{{Method: h.Constructor(jdomSAXBuilder), Object: h.Result()}},
			h.AnyOf(
				setFeature(featureDisallowDoctype, true),
				h.AllOf(
					setEmpty("setProperty", propertyExternalDTD),
					setEmpty("setProperty", propertyExternalSchema),
				),
				h.When(h.CallOn{Method: h.Named("setExpandEntities"), Args: []h.ArgCheck{h.Equals(0, false)}}),
			)),
		xxeRule("xxe-dom4j-sax-reader", "dom4j SAXReader disables external entities",
			[]h.Trigger{{Method: h.Constructor(dom4jSAXReader), Object: h.Result()}},
			saxHardened()),
	}
}
